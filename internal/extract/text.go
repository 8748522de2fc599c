package extract

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/joseph-ayodele/docverify/constants"
	"github.com/joseph-ayodele/docverify/internal/common"
)

// TextStrategy passes plain text through unchanged.
type TextStrategy struct{}

func (TextStrategy) Format() constants.Format { return constants.TXT }

func (TextStrategy) Extract(_ context.Context, src Source) (*Result, error) {
	if !utf8.Valid(src.Data) {
		return nil, common.InputDecodeError("read text", fmt.Errorf("input is not valid UTF-8"))
	}
	res := &Result{Pages: 1}
	res.add(Fragment{Kind: KindPlain, Method: "passthrough", Text: string(src.Data)})
	return res, nil
}
