package registry

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"wasmdb/internal/domain"
)

// Compiler turns uploaded source text into portable executable bytes. The
// registry treats it as an opaque collaborator so tests can substitute a
// fake and the real toolchain stays swappable.
type Compiler interface {
	Compile(ctx context.Context, source []byte) ([]byte, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, source []byte) ([]byte, error)

func (f CompilerFunc) Compile(ctx context.Context, source []byte) ([]byte, error) {
	return f(ctx, source)
}

// SubprocessCompiler shells out to an external compiler binary. The source
// is written to a temp file appended as the final argument; the compiled
// artifact is expected on stdout. A non-zero exit maps to CompileError with
// the compiler's stderr as diagnostic.
type SubprocessCompiler struct {
	// Path is the compiler executable. Empty means no compiler is
	// available and every compile fails.
	Path string
	// Args precede the source file argument.
	Args []string
	// SourceSuffix is the temp file extension, e.g. ".ts". Compilers
	// that sniff input type by extension need this.
	SourceSuffix string
}

// Compile implements Compiler.
func (c *SubprocessCompiler) Compile(ctx context.Context, source []byte) ([]byte, error) {
	if c.Path == "" {
		return nil, &domain.CompileError{Diagnostic: "no compiler configured"}
	}

	tmp, err := os.CreateTemp("", "query-*"+c.SourceSuffix)
	if err != nil {
		return nil, fmt.Errorf("create compiler temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(source); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("write compiler temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close compiler temp file: %w", err)
	}

	args := append(append([]string{}, c.Args...), tmp.Name())
	cmd := exec.CommandContext(ctx, c.Path, args...) //nolint:gosec // path comes from config

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return nil, &domain.CompileError{Diagnostic: diagnostic}
	}

	return stdout.Bytes(), nil
}
