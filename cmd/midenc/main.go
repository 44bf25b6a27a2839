// Command midenc is the thin CLI driver around this module's compiler
// core: it decodes a Wasm module or component, runs it through the
// frontend, solver, stackifier and wide-integer expansion passes, and
// writes out whichever artifact kinds the caller asked for.
//
// Grounded on wazero's cmd/wazero, itself a thin stdlib-`flag` driver with
// no CLI framework dependency: no CLI framework (cobra, urfave/cli,
// kingpin, ...) appears anywhere in this corpus, and wazero's own driver
// is exactly this shape.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/midenc-go/midenc/internal/codegen/stackify"
	"github.com/midenc-go/midenc/internal/frontend"
	"github.com/midenc-go/midenc/internal/hir/ir"
	"github.com/midenc-go/midenc/internal/masm"
	"github.com/midenc-go/midenc/internal/pkgfmt"
	"github.com/midenc-go/midenc/internal/session"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run is separated from main for the purpose of unit testing, matching
// doMain's split in the teacher's own driver.
func run(args []string, stdOut, stdErr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdErr)
		return 1
	}
	switch args[0] {
	case "compile":
		return doCompile(args[1:], stdOut, stdErr)
	case "-h", "--help", "help":
		printUsage(stdOut)
		return 0
	default:
		fmt.Fprintf(stdErr, "midenc: unknown command %q\n", args[0])
		printUsage(stdErr)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: midenc compile <input> [--emit hir|masm|masl|masp,...] [-o OUT] [--target base|rollup|emu] [-l lib] [--entrypoint NAME]")
}

// stringList accumulates repeated -l flag occurrences, matching the
// `[]string` "search paths / link libraries" shape session.Options.
type stringList []string

func (s *stringList) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func doCompile(args []string, stdOut, stdErr io.Writer) int {
	flags := flag.NewFlagSet("compile", flag.ContinueOnError)
	flags.SetOutput(stdErr)

	emit := flags.String("emit", "hir", "comma-separated emission kinds: hir, masm (or masl), masp (or package)")
	out := flags.String("o", "", "output path; defaults to stdout when a single kind is emitted")
	target := flags.String("target", "base", "execution target: base, rollup, or emu")
	entrypoint := flags.String("entrypoint", "", "exported function name to designate as the program entrypoint")
	var libs stringList
	flags.Var(&libs, "l", "link library search path (repeatable)")

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "midenc compile: missing input path")
		printUsage(stdErr)
		return 1
	}
	inputPath := flags.Arg(0)

	data, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(stdErr, "midenc: reading %s: %v\n", inputPath, err)
		return 1
	}

	kinds, err := parseEmitKinds(*emit)
	if err != nil {
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}
	tgt, err := session.ParseTarget(*target)
	if err != nil {
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}

	opts := session.NewOptions().WithTarget(tgt).WithEmit(kinds...)
	if *entrypoint != "" {
		opts = opts.WithEntrypoint(*entrypoint)
	}
	for _, l := range libs {
		opts = opts.WithSearchPath(l)
	}

	sess, err := session.New(opts)
	if err != nil {
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}

	moduleName := moduleNameFromPath(inputPath)
	prog, hirDump, err := compile(sess, moduleName, data)
	if err != nil {
		reportDiagnostics(stdErr, sess)
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}
	if sess.Failed() {
		reportDiagnostics(stdErr, sess)
		return 1
	}

	artifacts, err := renderArtifacts(kinds, moduleName, prog, hirDump, []string(libs))
	if err != nil {
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}
	if err := writeArtifacts(artifacts, *out, stdOut); err != nil {
		fmt.Fprintf(stdErr, "midenc: %v\n", err)
		return 1
	}
	return 0
}

func parseEmitKinds(spec string) ([]session.EmitKind, error) {
	var kinds []session.EmitKind
	start := 0
	for i := 0; i <= len(spec); i++ {
		if i == len(spec) || spec[i] == ',' {
			name := spec[start:i]
			start = i + 1
			if name == "" {
				continue
			}
			k, err := session.ParseEmitKind(name)
			if err != nil {
				return nil, err
			}
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("no emission kind selected")
	}
	return kinds, nil
}

func moduleNameFromPath(p string) string {
	base := filepath.Base(p)
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

func reportDiagnostics(w io.Writer, sess *session.Session) {
	for _, d := range sess.Diagnostics.Diagnostics() {
		fmt.Fprintln(w, d.String())
	}
}

// compile decodes data as a core module or a component, translates every
// defined function, and stackifies each into a masm.Program. hirDump
// collects each function's textual HIR rendering, in translation order,
// for --emit hir.
func compile(sess *session.Session, moduleName string, data []byte) (*masm.Program, []string, error) {
	if frontend.IsComponent(data) {
		return compileComponent(sess, moduleName, data)
	}
	return compileModule(sess, moduleName, data)
}

func compileModule(sess *session.Session, moduleName string, data []byte) (*masm.Program, []string, error) {
	mod, err := frontend.DecodeModule(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding module: %w", err)
	}
	dwarfLines, err := frontend.NewDWARFLines(mod)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving DWARF source spans: %w", err)
	}

	c := ir.NewContext()
	masmMod := masm.NewModule(moduleName)
	emitter := stackify.New(sess, moduleName)

	entrypointName := sess.Options().Entrypoint()
	var hirDump []string

	for i := range mod.Functions {
		funcIdx := uint32(len(mod.Imports) + i)
		name, isExport := functionName(mod, funcIdx)

		ft := frontend.NewFuncTranslator(c, sess, mod, dwarfLines)
		region, sig, err := ft.Translate(funcIdx)
		if err != nil {
			return nil, nil, fmt.Errorf("translating function %d (%s): %w", funcIdx, name, err)
		}
		hirDump = append(hirDump, hirText(region))

		masmSig, err := toMASMSignature(sig)
		if err != nil {
			return nil, nil, fmt.Errorf("function %d (%s): %w", funcIdx, name, err)
		}

		fn, err := emitter.Function(region, masmSig, name, isExport)
		if err != nil {
			return nil, nil, fmt.Errorf("stackifying function %d (%s): %w", funcIdx, name, err)
		}
		masmMod.AddFunction(fn)

		if isExport && (entrypointName == "" || entrypointName == name) {
			masmMod.Entrypoint = fn
		}
	}

	prog := masm.NewProgram()
	prog.AddModule(masmMod)
	if masmMod.Entrypoint != nil {
		prog.Entrypoint = masmMod.Entrypoint.Ident(moduleName)
	}
	return prog, hirDump, nil
}

func compileComponent(sess *session.Session, moduleName string, data []byte) (*masm.Program, []string, error) {
	comp, err := frontend.DecodeComponent(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding component: %w", err)
	}

	c := ir.NewContext()
	digests := map[string][32]byte{}
	for _, imp := range comp.Imports {
		key := imp.Interface + "::" + imp.Function
		if d, ok := sess.Options().ImportDigest(key); ok {
			digests[key] = d
		}
	}

	translation, err := frontend.TranslateComponent(c, sess, comp, nil, digests)
	if err != nil {
		return nil, nil, fmt.Errorf("translating component: %w", err)
	}

	masmMod := masm.NewModule(moduleName)
	for fqName := range groupImportsByInterface(translation.Imports) {
		masmMod.Imports.Alias(fqName)
	}

	entrypointName := sess.Options().Entrypoint()
	var hirDump []string
	exportedIdx := map[uint32]string{}
	for _, exp := range translation.Exports {
		exportedIdx[exp.CoreFuncIndex] = exp.Name
	}

	funcIdxs := make([]uint32, 0, len(translation.Funcs))
	for idx := range translation.Funcs {
		funcIdxs = append(funcIdxs, idx)
	}
	sort.Slice(funcIdxs, func(i, j int) bool { return funcIdxs[i] < funcIdxs[j] })

	emitter := stackify.New(sess, moduleName)
	for _, funcIdx := range funcIdxs {
		region := translation.Funcs[funcIdx]
		sig := translation.Sigs[funcIdx]
		name, isExport := exportedIdx[funcIdx]
		if !isExport {
			name = fmt.Sprintf("func%d", funcIdx)
		}
		hirDump = append(hirDump, hirText(region))

		masmSig, err := toMASMSignature(sig)
		if err != nil {
			return nil, nil, fmt.Errorf("component function %d: %w", funcIdx, err)
		}
		fn, err := emitter.Function(region, masmSig, name, isExport)
		if err != nil {
			return nil, nil, fmt.Errorf("stackifying component function %d: %w", funcIdx, err)
		}
		masmMod.AddFunction(fn)
		if isExport && (entrypointName == "" || entrypointName == name) {
			masmMod.Entrypoint = fn
		}
	}

	prog := masm.NewProgram()
	prog.AddModule(masmMod)
	if masmMod.Entrypoint != nil {
		prog.Entrypoint = masmMod.Entrypoint.Ident(moduleName)
	}
	return prog, hirDump, nil
}

func groupImportsByInterface(imports []frontend.ComponentImport) map[string]bool {
	out := map[string]bool{}
	for _, imp := range imports {
		out[imp.Interface] = true
	}
	return out
}

// functionName resolves the i-th (combined-space) function's name from
// the module's export table, falling back to a synthetic "func%d" name
// for unexported functions.
func functionName(mod *frontend.ModuleInfo, funcIdx uint32) (string, bool) {
	for _, exp := range mod.Exports {
		if exp.Kind == frontend.ExportFunction && exp.Index == funcIdx {
			return exp.Name, true
		}
	}
	return fmt.Sprintf("func%d", funcIdx), false
}

func toMASMSignature(sig frontend.FunctionType) (masm.Signature, error) {
	out := masm.Signature{}
	for _, p := range sig.Params {
		ty, err := p.ToHIR()
		if err != nil {
			return masm.Signature{}, err
		}
		out.Params = append(out.Params, ty)
	}
	for _, r := range sig.Results {
		ty, err := r.ToHIR()
		if err != nil {
			return masm.Signature{}, err
		}
		out.Results = append(out.Results, ty)
	}
	return out, nil
}

func hirText(region ir.Handle[ir.Region]) string {
	var buf bytes.Buffer
	_ = ir.Print(&buf, region)
	return buf.String()
}

// artifact is one emitted output: the bytes and the emission kind that
// produced them, so writeArtifacts can name files when more than one kind
// is requested.
type artifact struct {
	kind session.EmitKind
	data []byte
}

func renderArtifacts(kinds []session.EmitKind, moduleName string, prog *masm.Program, hirDump []string, linkLibraries []string) ([]artifact, error) {
	var out []artifact
	for _, k := range kinds {
		switch k {
		case session.EmitHIR:
			out = append(out, artifact{kind: k, data: []byte(strings.Join(hirDump, "\n"))})
		case session.EmitMASM:
			var buf bytes.Buffer
			if err := masm.Print(&buf, prog); err != nil {
				return nil, fmt.Errorf("rendering MASM: %w", err)
			}
			out = append(out, artifact{kind: k, data: buf.Bytes()})
		case session.EmitPackage:
			pkg, err := pkgfmt.BuildPackage(moduleName, prog, nil, linkLibraries)
			if err != nil {
				return nil, fmt.Errorf("building package: %w", err)
			}
			data, err := pkgfmt.Encode(pkg)
			if err != nil {
				return nil, fmt.Errorf("encoding package: %w", err)
			}
			out = append(out, artifact{kind: k, data: data})
		default:
			return nil, fmt.Errorf("unhandled emission kind %v", k)
		}
	}
	return out, nil
}

func emitSuffix(k session.EmitKind) string {
	switch k {
	case session.EmitHIR:
		return "hir"
	case session.EmitMASM:
		return "masm"
	case session.EmitPackage:
		return "masp"
	default:
		return "out"
	}
}

// writeArtifacts writes each artifact to outPath. A single artifact goes
// to outPath verbatim (or stdout if outPath is empty); multiple artifacts
// are written to "<outPath>.<kind>" each (or "a.out.<kind>" under the
// current directory if outPath is empty), since a single stream
// cannot unambiguously hold more than one selected emission kind.
func writeArtifacts(artifacts []artifact, outPath string, stdOut io.Writer) error {
	if len(artifacts) == 1 {
		if outPath == "" {
			_, err := stdOut.Write(artifacts[0].data)
			return err
		}
		return os.WriteFile(outPath, artifacts[0].data, 0o644)
	}
	base := outPath
	if base == "" {
		base = "a.out"
	}
	for _, a := range artifacts {
		path := fmt.Sprintf("%s.%s", base, emitSuffix(a.kind))
		if err := os.WriteFile(path, a.data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
