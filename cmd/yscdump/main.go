// Command yscdump is a small inspection CLI over the decompilation
// pipeline, in the exact shape of wagon's cmd/wasm-dump: flag-gated
// passes over one script, each pass reusing one pipeline package
// directly rather than going through decompile.Decompile when a
// shallower view is asked for.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/edsrzf/mmap-go"

	"github.com/yscdec/yscdec/cfg"
	"github.com/yscdec/yscdec/decompile"
	"github.com/yscdec/yscdec/disasm"
	"github.com/yscdec/yscdec/script"
	"github.com/yscdec/yscdec/splitter"
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: yscdump [options] file1.ysc [file2.ysc [...]]

ex:
 $> yscdump -x ./file1.ysc

options:
`,
		)
		flag.PrintDefaults()
		os.Exit(1)
	}
}

var (
	flagVerbose  = flag.Bool("v", false, "enable/disable verbose mode")
	flagDis      = flag.Bool("d", false, "disassemble and print the instruction stream")
	flagSplit    = flag.Bool("f", false, "split the instruction stream into functions and print their descriptors")
	flagGraph    = flag.Bool("g", false, "build each function's basic-block graph and print it with dominators/frontiers")
	flagDetails  = flag.Bool("x", false, "run the full decompile pipeline and print the resulting IR")
	flagDumpBlob = flag.String("dump-blob", "", "memory-map path instead of reading it and treat the mapped bytes as raw script.Code")
)

func main() {
	log.SetPrefix("yscdump: ")
	log.SetFlags(0)

	flag.Parse()

	if flag.NArg() < 1 && *flagDumpBlob == "" {
		flag.Usage()
		os.Exit(1)
	}

	if !*flagDis && !*flagSplit && !*flagGraph && !*flagDetails {
		flag.Usage()
		flag.PrintDefaults()
		log.Printf("At least one of -d, -f, -g or -x must be given")
		os.Exit(1)
	}

	cfg.SetDebugMode(*flagVerbose)
	decompile.SetDebugMode(*flagVerbose)

	if *flagDumpBlob != "" {
		process(*flagDumpBlob, loadBlob(*flagDumpBlob))
		return
	}

	for i, fname := range flag.Args() {
		if i > 0 {
			fmt.Printf("\n")
		}
		process(fname, loadFile(fname))
	}
}

// loadFile reads fname the ordinary way and wraps it as a Script with no
// strings/natives table attached: the on-disk container format that would
// populate those is explicitly out of scope (spec §1 Non-goals), so every
// dump mode here only ever exercises the Code field.
func loadFile(fname string) *script.Script {
	data, err := os.ReadFile(fname)
	if err != nil {
		log.Fatalf("could not read %q: %v", fname, err)
	}
	return &script.Script{Code: data, Version: script.VersionCurrent}
}

// loadBlob memory-maps fname read-only instead of reading it, the same
// mmap.RDONLY mode the teacher's exec package uses for its JIT's
// executable pages, repurposed here to exercise mmap-go's file-reading
// surface without pretending to execute anything.
func loadBlob(fname string) *script.Script {
	f, err := os.Open(fname)
	if err != nil {
		log.Fatalf("could not open %q: %v", fname, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		log.Fatalf("could not mmap %q: %v", fname, err)
	}
	defer m.Unmap()

	data := make([]byte, len(m))
	copy(data, m)
	return &script.Script{Code: data, Version: script.VersionCurrent}
}

func process(fname string, s *script.Script) {
	if *flagDis {
		printDis(fname, s)
	}
	if *flagSplit {
		printSplit(fname, s)
	}
	if *flagGraph {
		printGraph(fname, s)
	}
	if *flagDetails {
		printDetails(fname, s)
	}
}

func printDis(fname string, s *script.Script) {
	fmt.Printf("%s: disassembly\n\n", fname)
	dis, err := disasm.Disassemble(s.Code, s.Version)
	if err != nil {
		log.Fatal(err)
	}
	for _, rec := range dis.Code {
		fmt.Printf(" %06x: %-28s | %v\n", rec.Pos, rec.Instruction.Op, rec.Instruction.Imm)
	}
}

func printSplit(fname string, s *script.Script) {
	fmt.Printf("%s: functions\n\n", fname)
	dis, err := disasm.Disassemble(s.Code, s.Version)
	if err != nil {
		log.Fatal(err)
	}
	funcs, err := splitter.Split(dis.Code)
	if err != nil {
		log.Fatal(err)
	}
	for i, fd := range funcs {
		fmt.Printf(" func[%d] %s @ %#x params=%d returns=%d locals=%d instrs=%d\n",
			i, fd.Name, fd.ByteLocation, fd.Parameters, fd.Returns, fd.Locals, len(fd.Instructions),
		)
	}
}

func printGraph(fname string, s *script.Script) {
	fmt.Printf("%s: graphs\n\n", fname)
	dis, err := disasm.Disassemble(s.Code, s.Version)
	if err != nil {
		log.Fatal(err)
	}
	funcs, err := splitter.Split(dis.Code)
	if err != nil {
		log.Fatal(err)
	}
	for _, fd := range funcs {
		g, err := cfg.Build(fd.Instructions)
		if err != nil {
			log.Fatal(err)
		}
		doms := cfg.Analyze(g)
		fmt.Printf(" func %s: %d nodes\n", fd.Name, len(g.Nodes))
		for n, edges := range g.Out {
			fmt.Printf("  node %d: idom=%d frontier=%v out=%v\n", n, doms.Idom[n], doms.FrontierOf(n), edges)
		}
	}
}

func printDetails(fname string, s *script.Script) {
	fmt.Printf("%s: decompiled IR\n\n", fname)
	res, err := decompile.Decompile(s)
	if err != nil {
		log.Fatal(err)
	}
	for _, fn := range res.Functions {
		fmt.Printf(" func %s:\n", fn.Name)
		if *flagVerbose {
			fmt.Println(spew.Sdump(fn))
			continue
		}
		for _, si := range fn.Statements {
			fmt.Printf("  %v\n", si.Statement.Kind)
		}
	}
}
