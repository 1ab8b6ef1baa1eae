package dictionary

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/ikawaha/kagome-dict/dict"
	"github.com/japaniel/goodthings/pkg/apperr"
)

// ExecCompiler runs an external dictionary compiler following the
// mecab-dict-index convention:
//
//	<Command> [Args...] -d <system> -u <output> -f utf-8 -t utf-8 <input>
type ExecCompiler struct {
	Command string
	Args    []string // inserted before the standard flags
}

func (c ExecCompiler) Compile(ctx context.Context, req CompileRequest) error {
	if strings.TrimSpace(c.Command) == "" {
		return apperr.Configurationf("dictionary.compiler", "compiler command is not set")
	}
	enc := req.Encoding
	if enc == "" {
		enc = encodingUTF8
	}

	args := append([]string{}, c.Args...)
	args = append(args,
		"-d", req.SystemDictionary,
		"-u", req.Output,
		"-f", enc,
		"-t", enc,
		req.Input,
	)
	cmd := exec.CommandContext(ctx, c.Command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return apperr.Transient("dictionary compile", ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return apperr.DictionaryBuildf("%s exited with code %d: %s", c.Command, exitErr.ExitCode(), msg)
		}
		return apperr.DictionaryBuildf("run %s: %v", c.Command, err)
	}

	info, err := os.Stat(req.Output)
	if err != nil {
		return apperr.DictionaryBuildf("%s produced no artifact: %v", c.Command, err)
	}
	if info.Size() == 0 {
		return nil
	}
	if _, err := dict.NewUserDict(req.Output); err != nil {
		return apperr.DictionaryBuildf("%s produced an artifact the analyser cannot load: %v", c.Command, err)
	}
	return nil
}
