package escp

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// DefaultCodePage is the Nordic code page the DPU-414 ships with.
const DefaultCodePage = "cp865"

var (
	ErrEncoding        = errors.New("text not representable in code page")
	ErrUnknownCodePage = errors.New("unknown code page")
)

var codePages = map[string]*charmap.Charmap{
	"cp437":        charmap.CodePage437,
	"cp850":        charmap.CodePage850,
	"cp852":        charmap.CodePage852,
	"cp858":        charmap.CodePage858,
	"cp865":        charmap.CodePage865,
	"cp866":        charmap.CodePage866,
	"iso8859-1":    charmap.ISO8859_1,
	"iso8859-15":   charmap.ISO8859_15,
	"windows-1252": charmap.Windows1252,
}

// EncodingError names the content and the first rune the code page lacks.
type EncodingError struct {
	Content  string
	CodePage string
	Rune     rune
	Offset   int // byte offset of Rune in Content
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %q in %s: %q at offset %d is not representable",
		e.Content, e.CodePage, e.Rune, e.Offset)
}

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// CodePages lists the accepted code page names.
func CodePages() []string {
	names := make([]string, 0, len(codePages))
	for name := range codePages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupCodePage returns the charmap registered under name.
func LookupCodePage(name string) (*charmap.Charmap, error) {
	cm, ok := codePages[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownCodePage, name, strings.Join(CodePages(), ", "))
	}
	return cm, nil
}

// EncodeText encodes content in the default code page and appends LF.
func EncodeText(content string) ([]byte, error) {
	return EncodeTextIn(DefaultCodePage, content)
}

// EncodeTextIn encodes content in the named code page and appends LF.
func EncodeTextIn(codePage, content string) ([]byte, error) {
	cm, err := LookupCodePage(codePage)
	if err != nil {
		return nil, err
	}

	encoded := make([]byte, 0, len(content))
	for i, r := range content {
		b, ok := cm.EncodeRune(r)
		if !ok {
			return nil, &EncodingError{
				Content:  content,
				CodePage: strings.ToLower(codePage),
				Rune:     r,
				Offset:   i,
			}
		}
		encoded = append(encoded, b)
	}

	return New().Line(encoded).Bytes(), nil
}
