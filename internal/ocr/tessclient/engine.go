// Package tessclient is the in-process OCR engine backed by libtesseract.
package tessclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/docverify/internal/ocr"
)

// Engine creates one gosseract client per attempt; clients are not safe for concurrent use.
type Engine struct {
	TessdataPrefix string
	Variables      map[string]string
	clientFactory  func() *gosseract.Client
}

func New(tessdataPrefix string, vars map[string]string) *Engine {
	return &Engine{TessdataPrefix: tessdataPrefix, Variables: vars, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "gosseract" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input, a ocr.Attempt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := e.clientFactory()
	defer c.Close()

	if e.TessdataPrefix != "" {
		c.TessdataPrefix = e.TessdataPrefix
	}
	if err := c.SetImageFromBytes(in.PNG); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(strings.Split(a.Lang, "+")...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(a.PSM)); err != nil {
		return "", fmt.Errorf("set psm: %w", err)
	}
	for k, v := range e.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return "", fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}

var _ ocr.Engine = (*Engine)(nil)
