package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"jmute.dev/pkg/jmute/internal/bytecode"
)

// Verifier is the oracle deciding whether a mutated class is still
// acceptable. A negative answer is a rejection of the mutation, not an
// error; errors mean the verdict could not be obtained at all.
type Verifier interface {
	// VerifyClass checks a whole class. When class is nil the verifier
	// locates the class by name itself (used for transitive checks on
	// unmutated dependents).
	VerifyClass(ctx context.Context, className string, class []byte) (bool, error)

	// VerifyMethod checks a single method of a mutated class.
	VerifyMethod(ctx context.Context, className, methodName, signature string, class []byte) (bool, error)
}

// FindClassFile resolves a dotted class name to a file under one of the
// class path roots.
func FindClassFile(classPath []string, className string) (string, error) {
	rel := strings.ReplaceAll(className, ".", string(filepath.Separator)) + ".class"
	for _, root := range classPath {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("class %s not found on class path", className)
}

// StructuralVerifier accepts a class when it still parses and every
// method body still decodes. It is the default oracle when no external
// verifier command is configured.
type StructuralVerifier struct {
	// ClassPath is searched when VerifyClass is asked about a class
	// without bytes. Unresolvable classes pass with a warning.
	ClassPath []string
}

func (v *StructuralVerifier) VerifyClass(ctx context.Context, className string, class []byte) (bool, error) {
	if class == nil {
		path, err := FindClassFile(v.ClassPath, className)
		if err != nil {
			slog.Warn("could not verify class", "class", className, "error", err)
			return true, nil
		}
		if class, err = os.ReadFile(path); err != nil {
			return false, err
		}
	}
	cf, err := bytecode.Parse(class)
	if err != nil {
		return false, nil
	}
	for i := range cf.Methods {
		if _, err := cf.DecodeCode(&cf.Methods[i]); err != nil {
			return false, nil
		}
	}
	return true, nil
}

func (v *StructuralVerifier) VerifyMethod(ctx context.Context, className, methodName, signature string, class []byte) (bool, error) {
	cf, err := bytecode.Parse(class)
	if err != nil {
		return false, nil
	}
	meth, _ := cf.Method(methodName, signature)
	if meth == nil {
		return false, nil
	}
	if _, err := cf.DecodeCode(meth); err != nil {
		return false, nil
	}
	return true, nil
}

// CommandVerifier delegates the verdict to an external command, for
// example a JVM started with -Xverify. The mutated class is written to
// a temporary file; argument placeholders {class}, {classfile},
// {method}, and {signature} are substituted before the command runs.
// Exit status zero means the class passed.
type CommandVerifier struct {
	Command string
	Args    []string
	// ClassPath resolves classes verified without bytes.
	ClassPath []string
	Timeout   time.Duration
}

// NewCommandVerifier constructs a CommandVerifier with a 30s timeout.
func NewCommandVerifier(command string, args []string) *CommandVerifier {
	return &CommandVerifier{
		Command: command,
		Args:    args,
		Timeout: 30 * time.Second,
	}
}

func (v *CommandVerifier) VerifyClass(ctx context.Context, className string, class []byte) (bool, error) {
	return v.run(ctx, className, "", "", class)
}

func (v *CommandVerifier) VerifyMethod(ctx context.Context, className, methodName, signature string, class []byte) (bool, error) {
	return v.run(ctx, className, methodName, signature, class)
}

func (v *CommandVerifier) run(ctx context.Context, className, methodName, signature string, class []byte) (bool, error) {
	classFile, err := v.materialize(className, class)
	if class != nil && classFile != "" {
		defer os.Remove(classFile)
	}
	if err != nil {
		slog.Warn("could not verify class", "class", className, "error", err)
		return true, nil
	}

	ctx, cancel := context.WithTimeout(ctx, v.Timeout)
	defer cancel()

	args := make([]string, len(v.Args))
	for i, a := range v.Args {
		a = strings.ReplaceAll(a, "{class}", className)
		a = strings.ReplaceAll(a, "{classfile}", classFile)
		a = strings.ReplaceAll(a, "{method}", methodName)
		a = strings.ReplaceAll(a, "{signature}", signature)
		args[i] = a
	}

	cmd := exec.CommandContext(ctx, v.Command, args...)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("verifier command failed: %w", err)
	}
	return true, nil
}

// materialize places the class bytes where the command can read them,
// or resolves an on-disk class when no bytes were given.
func (v *CommandVerifier) materialize(className string, class []byte) (string, error) {
	if class == nil {
		return FindClassFile(v.ClassPath, className)
	}
	f, err := os.CreateTemp("", "jmute-verify-*.class")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(class); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
