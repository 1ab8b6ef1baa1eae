package dictionary

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/japaniel/goodthings/pkg/apperr"
)

// BuiltinSystemDictionary names the IPA dictionary bundled with kagome.
const BuiltinSystemDictionary = "ipa"

// mecabFields is the column count of a MeCab source-dictionary line.
const mecabFields = 13

// KagomeCompiler compiles in process. It converts the MeCab-format entry file
// into kagome's user dictionary format (text,tokens,yomi,pos) and proves the
// result loads.
type KagomeCompiler struct{}

func (KagomeCompiler) Compile(ctx context.Context, req CompileRequest) error {
	if err := checkEncoding(req.Encoding); err != nil {
		return apperr.DictionaryBuildf("%v", err)
	}
	if sys := req.SystemDictionary; sys != "" && sys != BuiltinSystemDictionary {
		if _, err := os.Stat(sys); err != nil {
			return apperr.DictionaryBuildf("system dictionary %s: %v", sys, err)
		}
	}

	in, err := os.Open(req.Input)
	if err != nil {
		return apperr.DictionaryBuildf("open entry file: %v", err)
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = mecabFields
	r.ReuseRecord = true

	var out bytes.Buffer
	count := 0
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return apperr.Transient("dictionary compile", err)
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return apperr.DictionaryBuildf("%s line %d: %v", req.Input, line, err)
		}
		surface, pos, reading := rec[0], rec[4], rec[10]
		if surface == "" {
			return apperr.DictionaryBuildf("%s line %d: empty surface form", req.Input, line)
		}
		if reading == "" {
			reading = "*"
		}
		fmt.Fprintf(&out, "%s,%s,%s,%s\n", surface, surface, reading, pos)
		count++
	}

	if err := os.WriteFile(req.Output, out.Bytes(), 0o600); err != nil {
		return apperr.DictionaryBuildf("write artifact: %v", err)
	}
	if count == 0 {
		return nil
	}
	if _, err := dict.NewUserDict(req.Output); err != nil {
		return apperr.DictionaryBuildf("user dictionary rejected: %v", err)
	}
	return nil
}
