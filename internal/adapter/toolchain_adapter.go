package adapter

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

// ToolchainConfig names the external tools and the cross-compilation target.
// All of it comes from configuration; the CLI contracts are fixed.
type ToolchainConfig struct {
	// Compiler is the build driver, normally "cargo".
	Compiler string
	// Objcopy strips and converts an ELF image, normally "rust-objcopy".
	Objcopy string
	// Objdump disassembles an ELF image, normally "rust-objdump".
	Objdump string
	// Triple is the target triple, normally "riscv64gc-unknown-none-elf".
	Triple string
	// WorkDir is the firmware workspace root the compiler runs in.
	WorkDir m.Path
}

// CompilerAdapter abstracts the cross-compiler invocation. One call compiles
// the whole entry-point set for a single feature-flag set; the toolchain
// manages its own internal parallelism.
type CompilerAdapter interface {
	// Compile runs one release-mode build with the given feature flags.
	// Returns the combined stdout/stderr output and any error.
	Compile(ctx context.Context, features []string) (output string, err error)
}

// ObjToolAdapter abstracts the object-copy and disassembly tools that derive
// artifacts from an ELF image.
type ObjToolAdapter interface {
	// StripToBinary strips all symbol/debug metadata from the ELF at elfPath
	// and writes it as a raw flat binary to outPath.
	StripToBinary(ctx context.Context, elfPath, outPath m.Path) (output string, err error)

	// Disassemble writes a full disassembly of the ELF at elfPath, with
	// interleaved source where available, to outPath.
	Disassemble(ctx context.Context, elfPath, outPath m.Path) (output string, err error)
}

// LocalToolchainAdapter provides concrete CompilerAdapter and ObjToolAdapter
// implementations using os/exec.
type LocalToolchainAdapter struct {
	config ToolchainConfig
}

// NewLocalToolchainAdapter constructs a LocalToolchainAdapter for the given
// tool configuration.
func NewLocalToolchainAdapter(config ToolchainConfig) *LocalToolchainAdapter {
	return &LocalToolchainAdapter{config: config}
}

// Compile runs one release-mode cross build with the given feature flags.
func (a *LocalToolchainAdapter) Compile(ctx context.Context, features []string) (string, error) {
	cmd := exec.CommandContext(ctx, a.config.Compiler, compileArgs(a.config.Triple, features)...)
	cmd.Dir = string(a.config.WorkDir)

	return runCombined(cmd)
}

// StripToBinary converts the ELF image to a stripped flat binary.
func (a *LocalToolchainAdapter) StripToBinary(ctx context.Context, elfPath, outPath m.Path) (string, error) {
	cmd := exec.CommandContext(ctx, a.config.Objcopy, objcopyArgs(elfPath, outPath)...)
	cmd.Dir = string(a.config.WorkDir)

	return runCombined(cmd)
}

// Disassemble captures the disassembly listing of the ELF image to outPath.
func (a *LocalToolchainAdapter) Disassemble(ctx context.Context, elfPath, outPath m.Path) (string, error) {
	out, err := os.Create(string(outPath))
	if err != nil {
		return "", err
	}

	defer func() { _ = out.Close() }()

	cmd := exec.CommandContext(ctx, a.config.Objdump, objdumpArgs(elfPath)...)
	cmd.Dir = string(a.config.WorkDir)
	cmd.Stdout = out

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	err = cmd.Run()

	return stderr.String(), err
}

// compileArgs builds the fixed-contract argument list for the compiler. The
// feature set is passed as a single space-joined --features value, matching
// cargo's CLI.
func compileArgs(triple string, features []string) []string {
	args := []string{"build", "--release", "--target", triple}
	if len(features) > 0 {
		args = append(args, "--features", strings.Join(features, " "))
	}

	return args
}

// objcopyArgs builds the fixed-contract argument list for the converter.
func objcopyArgs(elfPath, outPath m.Path) []string {
	return []string{string(elfPath), "--strip-all", "-O", "binary", string(outPath)}
}

// objdumpArgs builds the fixed-contract argument list for the disassembler.
// -d -S disassembles with interleaved source where debug info allows.
func objdumpArgs(elfPath m.Path) []string {
	return []string{"-d", "-S", string(elfPath)}
}

func runCombined(cmd *exec.Cmd) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	output := stdout.String() + stderr.String()

	return output, err
}
