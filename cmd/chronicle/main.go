// Command chronicle streams text corpora through the stream-compaction
// engine, minting atoms per symbol and letting recurring adjacencies
// fold into patterns, then reports the pattern inventory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/sugawarayuuta/sonnet"

	"github.com/mrabchevskiy/chronicle"
	"github.com/mrabchevskiy/chronicle/storage"
)

type stats struct {
	Symbols       int     `json:"symbols"`
	MicrosPerSym  float64 `json:"microseconds_per_symbol"`
	Length        int     `json:"sequence_length"`
	Gap           int     `json:"gap"`
	Distinct      int     `json:"distinct"`
	Compactions   int     `json:"compactions"`
	Patterns      int     `json:"patterns"`
	Views         int     `json:"views"`
	Continuations int     `json:"continuations"`
	Compression   float64 `json:"compression_ratio"`
	ArenaOccupied int     `json:"arena_occupied_words"`
	ArenaFree     int     `json:"arena_available_words"`
}

type run struct {
	cfg   Config
	store *storage.Store
	seq   *chronicle.Chronicle

	symbols       int
	compactions   int
	continuations int
	elapsed       time.Duration
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("chronicle: ")

	configPath := flag.String("config", "", "YAML config file")
	capacity := flag.Int("capacity", 0, "ring buffer capacity (overrides config)")
	gapLimit := flag.Int("gap", 0, "compaction threshold in holes (overrides config)")
	arenaWords := flag.Int("arena", 0, "pattern arena size in identity words (overrides config)")
	top := flag.Int("top", 0, "number of longest patterns to echo (overrides config)")
	statsPath := flag.String("stats", "", "write run statistics as JSON to this path")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *capacity > 0 {
		cfg.Capacity = *capacity
	}
	if *gapLimit > 0 {
		cfg.GapLimit = *gapLimit
	}
	if *arenaWords > 0 {
		cfg.ArenaWords = *arenaWords
	}
	if *top > 0 {
		cfg.Top = *top
	}
	if *statsPath != "" {
		cfg.StatsPath = *statsPath
	}
	cfg.Sources = append(cfg.Sources, flag.Args()...)
	if len(cfg.Sources) == 0 {
		log.Fatal("no source files (pass paths as arguments or via the config)")
	}

	store := storage.New(cfg.ArenaWords)
	for i := 0; i < len(cfg.Unconnectable); i++ {
		store.MarkUnconnectable(store.Atom(cfg.Unconnectable[i]))
	}
	seq, err := chronicle.New(store, chronicle.WithCapacity(cfg.Capacity))
	if err != nil {
		log.Fatal(err)
	}

	r := &run{cfg: cfg, store: store, seq: seq}
	for _, path := range cfg.Sources {
		if err := r.processFile(path); err != nil {
			log.Fatal(err)
		}
	}
	r.report()
}

// processFile streams one text file symbol by symbol: carriage returns
// dropped, control and non-ASCII bytes read as spaces, space runs
// collapsed, letters lowercased.
func (me *run) processFile(path string) error {
	fmt.Printf("process %s\n", path)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src := bufio.NewReader(f)
	prev := byte(' ')
	start := time.Now()
	for {
		symbol, err := src.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if symbol == '\r' {
			continue
		}
		if symbol >= 127 || symbol < 32 {
			symbol = ' '
		}
		if symbol == ' ' && prev == ' ' {
			continue
		}
		if symbol >= 'A' && symbol <= 'Z' {
			symbol += 'a' - 'A'
		}
		me.symbols++

		id := me.store.Atom(symbol)
		if !me.seq.Incl(id) {
			return fmt.Errorf("%s: inclusion of %q failed", path, symbol)
		}
		if me.store.Composite(me.seq.LastID()) {
			me.continuations++
		}
		prev = symbol

		if me.seq.Gap() >= me.cfg.GapLimit {
			me.seq.Compact()
			me.compactions++
		}
		if me.symbols%100000 == 0 {
			fmt.Printf("\r processed %10d symbols", me.symbols)
		}
	}
	me.elapsed += time.Since(start)
	fmt.Printf("\r processed %10d symbols\n", me.symbols)
	return nil
}

func (me *run) report() {
	st := me.collectStats()
	fmt.Printf("\n total symbols      %10d in %.2f ms ~ %.2f microsec/symbol\n",
		st.Symbols, float64(me.elapsed.Microseconds())/1000.0, st.MicrosPerSym)
	fmt.Printf(" sequence length    %10d ~ %.2f %% of capacity\n",
		st.Length, 100*float64(st.Length)/float64(me.cfg.Capacity))
	fmt.Printf(" compacted          %10d times\n", st.Compactions)
	fmt.Printf(" gap                %10d\n", st.Gap)
	fmt.Printf(" patterns           %10d\n", st.Patterns)
	fmt.Printf(" views              %10d\n", st.Views)
	fmt.Printf(" distinct resident  %10d\n", st.Distinct)
	fmt.Printf(" continuations      %13.2f %%\n", 100*float64(st.Continuations)/float64(max(st.Symbols, 1)))
	fmt.Printf(" compression ratio  %13.2f\n", st.Compression)
	fmt.Printf(" arena occupied     %10d words\n", st.ArenaOccupied)
	fmt.Printf(" arena available    %10d words\n", st.ArenaFree)

	if me.cfg.PatternsPath != "" {
		if err := me.writePatterns(me.cfg.PatternsPath); err != nil {
			log.Printf("patterns report: %v", err)
		}
	}
	if me.cfg.SequelPath != "" {
		if err := me.writeSequel(me.cfg.SequelPath); err != nil {
			log.Printf("sequel report: %v", err)
		}
	}
	if me.cfg.StatsPath != "" {
		if err := writeStats(me.cfg.StatsPath, st); err != nil {
			log.Printf("stats report: %v", err)
		}
	}
}

func (me *run) collectStats() stats {
	st := stats{
		Symbols:       me.symbols,
		Length:        me.seq.Len(),
		Gap:           me.seq.Gap(),
		Distinct:      me.seq.Distinct(),
		Compactions:   me.compactions,
		Patterns:      me.store.NumPatterns(),
		Views:         me.store.NumViews(),
		Continuations: me.continuations,
		ArenaOccupied: me.store.ArenaOccupied(),
		ArenaFree:     me.store.ArenaAvailable(),
	}
	if me.symbols > 0 {
		st.MicrosPerSym = float64(me.elapsed.Microseconds()) / float64(me.symbols)
		if me.seq.Len() > 0 {
			st.Compression = float64(me.symbols) / float64(me.seq.Len())
		}
	}
	return st
}

// writePatterns lists every minted pattern sorted by rendering, and
// echoes the longest ones to stdout.
func (me *run) writePatterns(path string) error {
	var rendered []string
	me.store.Patterns(func(id chronicle.Identity, _ []chronicle.Identity) bool {
		rendered = append(rendered, me.store.Lex(id))
		return true
	})

	longest := append([]string(nil), rendered...)
	sort.Slice(longest, func(i, j int) bool {
		if len(longest[i]) != len(longest[j]) {
			return len(longest[i]) > len(longest[j])
		}
		return longest[i] < longest[j]
	})
	n := min(me.cfg.Top, len(longest))
	fmt.Printf("\n top %d longest patterns:\n", n)
	for i := 0; i < n; i++ {
		fmt.Printf(" %3d `%s`\n", i+1, longest[i])
	}

	sort.Strings(rendered)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for i, p := range rendered {
		fmt.Fprintf(w, " %05d  `%s`\n", i+1, p)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// writeSequel groups the cached views by head and lists, per head, the
// tails it has been seen continuing into, plus a fan-out histogram.
func (me *run) writeSequel(path string) error {
	sequel := map[chronicle.Identity][]chronicle.Identity{}
	me.store.Views(func(head, tail, _ chronicle.Identity) bool {
		sequel[head] = append(sequel[head], tail)
		return true
	})

	contexts := make([]chronicle.Identity, 0, len(sequel))
	for head := range sequel {
		contexts = append(contexts, head)
	}
	byLex := func(ids []chronicle.Identity) {
		sort.Slice(ids, func(i, j int) bool {
			l, r := me.store.Lex(ids[i]), me.store.Lex(ids[j])
			if len(l) != len(r) {
				return len(l) > len(r)
			}
			return l < r
		})
	}
	byLex(contexts)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	histogram := map[int]int{}
	for ord, head := range contexts {
		tails := sequel[head]
		histogram[len(tails)]++
		byLex(tails)
		fmt.Fprintf(w, " %05d  `%s`\n", ord+1, me.store.Lex(head))
		for i, tail := range tails {
			fmt.Fprintf(w, " %5d  `%s`\n", i+1, me.store.Lex(tail))
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fanouts := make([]int, 0, len(histogram))
	for n := range histogram {
		fanouts = append(fanouts, n)
	}
	sort.Ints(fanouts)
	fmt.Printf("\n continuation fan-out:\n")
	for _, n := range fanouts {
		fmt.Printf(" %4d continuations: %6d heads\n", n, histogram[n])
	}
	return nil
}

func writeStats(path string, st stats) error {
	raw, err := sonnet.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0o644)
}
