// Karel CLI - compiles a Karel program, runs it against a world, and
// reports the result.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/atvexy/karel/compiler"
	"github.com/atvexy/karel/manifest"
	"github.com/atvexy/karel/vm"
	"github.com/atvexy/karel/vm/snapshot"
	"github.com/atvexy/karel/worldstore"
)

func main() {
	entry := flag.String("m", "", "Entry symbol to run (default: manifest entry, or 'main')")
	worldFile := flag.String("world", "", "World snapshot file to load")
	loadWorld := flag.String("load-world", "", "Named world to load from the world store")
	saveWorld := flag.String("save-world", "", "Store the final world under this name")
	outFile := flag.String("out", "", "Write the final world snapshot to this file")
	imageFile := flag.String("image", "", "Load a compiled image snapshot instead of source")
	saveImage := flag.String("save-image", "", "Write the compiled image snapshot to this file")
	storePath := flag.String("store", "", "World store database (default: ~/.karel/worlds.db)")
	listWorlds := flag.Bool("list-worlds", false, "List stored worlds and exit")
	symbols := flag.Bool("symbols", false, "List program symbols and exit")
	dis := flag.Bool("dis", false, "Print a disassembly of the compiled image")
	quiet := flag.Bool("q", false, "Do not print the final world")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: karel [options] [program.kl]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles a Karel program, runs an entry symbol against a world, and\n")
		fmt.Fprintf(os.Stderr, "prints the resulting world. A karel.toml manifest in the current\n")
		fmt.Fprintf(os.Stderr, "directory (or above) supplies defaults for the program, world and entry.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  karel maze.kl                   # run 'main' on an empty world\n")
		fmt.Fprintf(os.Stderr, "  karel -m solve -world a.kw maze.kl\n")
		fmt.Fprintf(os.Stderr, "  karel -load-world lab -save-world lab-done maze.kl\n")
		fmt.Fprintf(os.Stderr, "  karel -image maze.ki -m main    # run a precompiled image\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	// A manifest fills in anything the flags leave unset.
	mf, err := manifest.FindAndLoad(".")
	if err != nil {
		fatalf("loading manifest: %v", err)
	}

	sourcePath := flag.Arg(0)
	if sourcePath == "" && mf != nil {
		sourcePath = mf.SourcePath()
	}
	if *worldFile == "" && mf != nil {
		*worldFile = mf.WorldPath()
	}
	if *loadWorld == "" && mf != nil && *worldFile == "" {
		*loadWorld = mf.World.Store
	}
	if *entry == "" {
		if mf != nil {
			*entry = mf.Program.Entry
		} else {
			*entry = "main"
		}
	}
	if *storePath == "" && mf != nil {
		*storePath = mf.Store.Path
	}

	if *listWorlds {
		store := openStore(*storePath)
		defer store.Close()
		entries, err := store.List()
		if err != nil {
			fatalf("listing worlds: %v", err)
		}
		for _, e := range entries {
			fmt.Printf("%-24s %s\n", e.Name, e.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	vmInst := vm.NewVM()
	vmInst.UseCompiler(compiler.Compile)

	// Load the program: precompiled image snapshot, or source text.
	switch {
	case *imageFile != "":
		data, err := os.ReadFile(*imageFile)
		if err != nil {
			fatalf("reading image: %v", err)
		}
		img, err := snapshot.UnmarshalImage(data)
		if err != nil {
			fatalf("%v", err)
		}
		prog, err := snapshot.RestoreImage(img)
		if err != nil {
			fatalf("%v", err)
		}
		if st := vmInst.LoadCompiled(prog); st != vm.StatusSuccess {
			fatalf("loading image: %s", st)
		}
	case sourcePath != "":
		if st := vmInst.LoadProgramFile(sourcePath); st != vm.StatusSuccess {
			for _, line := range vmInst.CompileErrors() {
				fmt.Fprintf(os.Stderr, "%s: %s\n", sourcePath, line)
			}
			fatalf("loading %s: %s", sourcePath, st)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}

	if *symbols {
		for _, name := range vmInst.Symbols() {
			fmt.Println(name)
		}
		return
	}
	if *dis {
		for _, line := range vm.Disassemble(vmInst.Image()) {
			fmt.Println(line)
		}
	}
	if *saveImage != "" {
		data, err := snapshot.MarshalImage(snapshot.CaptureImage(&vm.Program{
			Code:    vmInst.Image(),
			Symbols: symbolTable(vmInst),
		}))
		if err != nil {
			fatalf("encoding image: %v", err)
		}
		if err := os.WriteFile(*saveImage, data, 0o644); err != nil {
			fatalf("writing image: %v", err)
		}
	}

	loadStartWorld(vmInst, *worldFile, *loadWorld, *storePath)

	st := vmInst.RunSymbol(*entry)
	fmt.Printf("%s: %s\n", *entry, st)

	if !*quiet {
		printWorld(vmInst)
	}

	if *outFile != "" || *saveWorld != "" {
		w, err := snapshot.CaptureWorld(vmInst)
		if err != nil {
			fatalf("%v", err)
		}
		if *outFile != "" {
			data, err := snapshot.MarshalWorld(w)
			if err != nil {
				fatalf("encoding world: %v", err)
			}
			if err := os.WriteFile(*outFile, data, 0o644); err != nil {
				fatalf("writing world: %v", err)
			}
		}
		if *saveWorld != "" {
			store := openStore(*storePath)
			defer store.Close()
			if _, err := store.Save(*saveWorld, w); err != nil {
				fatalf("saving world: %v", err)
			}
		}
	}

	if st != vm.StatusSuccess && st != vm.StatusStopEncountered {
		os.Exit(1)
	}
}

// loadStartWorld seeds the VM's world from a snapshot file, a stored world,
// or the empty default: no walls, no flags, robot at the origin facing
// north.
func loadStartWorld(vmInst *vm.VM, worldFile, storedName, storePath string) {
	switch {
	case worldFile != "":
		data, err := os.ReadFile(worldFile)
		if err != nil {
			fatalf("reading world: %v", err)
		}
		w, err := snapshot.UnmarshalWorld(data)
		if err != nil {
			fatalf("%v", err)
		}
		if err := snapshot.RestoreWorld(vmInst, w); err != nil {
			fatalf("%v", err)
		}
	case storedName != "":
		store := openStore(storePath)
		defer store.Close()
		w, err := store.Load(storedName)
		if err != nil {
			fatalf("loading world %q: %v", storedName, err)
		}
		if err := snapshot.RestoreWorld(vmInst, w); err != nil {
			fatalf("%v", err)
		}
	default:
		cells := make([]byte, vm.WorldCells)
		if st := vmInst.LoadWorld(cells, vm.RobotRecord{0, 0, 0, 0, 0}); st != vm.StatusSuccess {
			fatalf("loading empty world: %s", st)
		}
	}
}

// openStore opens the world store, defaulting to ~/.karel/worlds.db.
func openStore(path string) *worldstore.Store {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fatalf("resolving home directory: %v", err)
		}
		dir := filepath.Join(home, ".karel")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("creating %s: %v", dir, err)
		}
		path = filepath.Join(dir, "worlds.db")
	}
	store, err := worldstore.Open(path)
	if err != nil {
		fatalf("opening world store: %v", err)
	}
	return store
}

// symbolTable rebuilds a SymbolTable from the VM's symbol dump for image
// capture.
func symbolTable(vmInst *vm.VM) *vm.SymbolTable {
	t := vm.NewSymbolTable()
	for _, name := range vmInst.Symbols() {
		if pc, ok := vmInst.LookupSymbol(name); ok {
			t.Insert(name, pc)
		}
	}
	return t
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
