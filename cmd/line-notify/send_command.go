package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goog1e-app/line-notify/internal/notifyclient"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	token          string
	message        string
	silent         bool
	stickerPackage int
	sticker        int
	imageURL       string
	imageFile      string
	endpoint       string
	jsonOutput     bool
}

func newSendCommand(ctx *commandContext) *cobra.Command {
	opts := &sendOptions{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send one notification with an access token",
		Example: `  line-notify send -t $TOKEN -m "build finished"
  line-notify send -t $TOKEN -m "look" --image-file ./chart.png --silent
  line-notify send -t $TOKEN -m "yay" --sticker-package 446 --sticker 1988`,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := opts.build()
			if err != nil {
				return err
			}
			token := strings.TrimSpace(opts.token)
			if token == "" {
				token = strings.TrimSpace(os.Getenv("LINE_NOTIFY_TOKEN"))
			}
			if token == "" {
				return errors.New("access token is required (--token or LINE_NOTIFY_TOKEN)")
			}

			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			endpoint := cfg.Notify.Endpoint
			if opts.endpoint != "" {
				endpoint = opts.endpoint
			}
			client, err := notifyclient.New(endpoint, cfg.Notify.RequestTimeout, logger)
			if err != nil {
				return fmt.Errorf("init notify client: %w", err)
			}

			resp, sendErr := client.Send(cmd.Context(), token, msg)
			if err := printResponse(cmd, resp, opts.jsonOutput); err != nil {
				return err
			}
			switch {
			case sendErr != nil:
				return fmt.Errorf("outcome unknown: %w", sendErr)
			case !resp.OK():
				return fmt.Errorf("notify rejected with status %d", resp.Status)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.token, "token", "t", "", "Access token (defaults to LINE_NOTIFY_TOKEN)")
	flags.StringVarP(&opts.message, "message", "m", "", "Message text, 1000 characters max")
	flags.BoolVar(&opts.silent, "silent", false, "Deliver without a push alert")
	flags.IntVar(&opts.stickerPackage, "sticker-package", 0, "Sticker package id")
	flags.IntVar(&opts.sticker, "sticker", 0, "Sticker id")
	flags.StringVar(&opts.imageURL, "image-url", "", "Remote JPEG url (2048x2048px max)")
	flags.StringVar(&opts.imageFile, "image-file", "", "Local png or jpeg to upload")
	flags.StringVar(&opts.endpoint, "endpoint", "", "Override the notify endpoint")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print the raw JSON response")
	_ = cmd.MarkFlagRequired("message")
	cmd.MarkFlagsRequiredTogether("sticker-package", "sticker")
	cmd.MarkFlagsMutuallyExclusive("sticker", "image-url", "image-file")
	return cmd
}

func (o *sendOptions) build() (notifyclient.Message, error) {
	if strings.TrimSpace(o.message) == "" {
		return nil, errors.New("message is required")
	}
	switch {
	case o.imageFile != "":
		return notifyclient.ImageFile{Message: o.message, Path: o.imageFile, NotificationDisabled: o.silent}, nil
	case o.imageURL != "":
		return notifyclient.ImageURL{Message: o.message, URL: o.imageURL, NotificationDisabled: o.silent}, nil
	case o.stickerPackage != 0 || o.sticker != 0:
		return notifyclient.Sticker{
			Message:              o.message,
			PackageID:            o.stickerPackage,
			StickerID:            o.sticker,
			NotificationDisabled: o.silent,
		}, nil
	default:
		return notifyclient.Text{Message: o.message, NotificationDisabled: o.silent}, nil
	}
}

func printResponse(cmd *cobra.Command, resp notifyclient.Response, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if !resp.Known() {
		fmt.Fprintln(out, "status: unknown")
		return nil
	}
	if resp.Message != "" {
		fmt.Fprintf(out, "status: %d (%s)\n", resp.Status, resp.Message)
		return nil
	}
	fmt.Fprintf(out, "status: %d\n", resp.Status)
	return nil
}
