package notifyclient

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
)

const (
	fieldMessage              = "message"
	fieldNotificationDisabled = "notificationDisabled"
	fieldStickerPackageID     = "stickerPackageId"
	fieldStickerID            = "stickerId"
	fieldImageFullsize        = "imageFullsize"
	fieldImageFile            = "imageFile"

	contentTypeForm = "application/x-www-form-urlencoded"
)

// Message is one of Text, Sticker, ImageURL or ImageFile.
type Message interface {
	// Kind names the payload shape for logs.
	Kind() string
	// Text returns the message text.
	Text() string
	// Silent reports whether push alerts are suppressed.
	Silent() bool

	encode() (body []byte, contentType string, err error)
}

// Text is a plain message. Message is limited to 1000 characters by the service.
type Text struct {
	Message              string
	NotificationDisabled bool
}

// Sticker attaches a sticker identified by package and sticker id.
type Sticker struct {
	Message              string
	PackageID            int
	StickerID            int
	NotificationDisabled bool
}

// ImageURL attaches a remote JPEG of at most 2048x2048px.
type ImageURL struct {
	Message              string
	URL                  string
	NotificationDisabled bool
}

// ImageFile uploads a png or jpeg. Content takes precedence over Path;
// Filename defaults to the base name of Path.
type ImageFile struct {
	Message              string
	Path                 string
	Filename             string
	Content              io.Reader
	NotificationDisabled bool
}

func (m Text) Kind() string     { return "text" }
func (m Sticker) Kind() string  { return "sticker" }
func (m ImageURL) Kind() string { return "image_url" }
func (m ImageFile) Kind() string {
	return "image_file"
}

func (m Text) Text() string      { return m.Message }
func (m Sticker) Text() string   { return m.Message }
func (m ImageURL) Text() string  { return m.Message }
func (m ImageFile) Text() string { return m.Message }

func (m Text) Silent() bool      { return m.NotificationDisabled }
func (m Sticker) Silent() bool   { return m.NotificationDisabled }
func (m ImageURL) Silent() bool  { return m.NotificationDisabled }
func (m ImageFile) Silent() bool { return m.NotificationDisabled }

func (m Text) encode() ([]byte, string, error) {
	values := url.Values{}
	values.Set(fieldMessage, m.Message)
	values.Set(fieldNotificationDisabled, strconv.FormatBool(m.NotificationDisabled))
	return []byte(values.Encode()), contentTypeForm, nil
}

func (m Sticker) encode() ([]byte, string, error) {
	values := url.Values{}
	values.Set(fieldMessage, m.Message)
	values.Set(fieldStickerPackageID, strconv.Itoa(m.PackageID))
	values.Set(fieldStickerID, strconv.Itoa(m.StickerID))
	values.Set(fieldNotificationDisabled, strconv.FormatBool(m.NotificationDisabled))
	return []byte(values.Encode()), contentTypeForm, nil
}

func (m ImageURL) encode() ([]byte, string, error) {
	values := url.Values{}
	values.Set(fieldMessage, m.Message)
	values.Set(fieldImageFullsize, m.URL)
	values.Set(fieldNotificationDisabled, strconv.FormatBool(m.NotificationDisabled))
	return []byte(values.Encode()), contentTypeForm, nil
}

func (m ImageFile) encode() ([]byte, string, error) {
	content := m.Content
	filename := m.Filename
	if content == nil {
		if m.Path == "" {
			return nil, "", fmt.Errorf("image file path is required")
		}
		f, err := os.Open(m.Path)
		if err != nil {
			return nil, "", fmt.Errorf("open image file: %w", err)
		}
		defer f.Close()
		content = f
	}
	if filename == "" {
		filename = filepath.Base(m.Path)
	}
	if filename == "" || filename == "." {
		filename = "image"
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField(fieldMessage, m.Message); err != nil {
		return nil, "", err
	}
	part, err := w.CreateFormFile(fieldImageFile, filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, "", fmt.Errorf("read image file: %w", err)
	}
	if err := w.WriteField(fieldNotificationDisabled, strconv.FormatBool(m.NotificationDisabled)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
