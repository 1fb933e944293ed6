// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command udq evaluates User-Defined Quantity declarations against a
// seeded result store, either from a deck file or interactively.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"nickandperla.net/udq/internal/token"
	"nickandperla.net/udq/pkg/udq"
)

func main() {
	var (
		deckFile   = flag.String("f", "", "Deck file with a UDQ section")
		oneShot    = flag.String("e", "", "One-shot DEFINE expression for keyword FUEXPR")
		dbPath     = flag.String("db", "", "SQLite restart store path (empty = no persistence)")
		paramsFile = flag.String("params", "", "YAML engine parameters file")
		step       = flag.Int("step", 1, "Report step to evaluate at")
		wells      = flag.String("wells", "", "Comma-separated well names")
		groups     = flag.String("groups", "", "Comma-separated group names")
		seed       = flag.String("seed", "", "Comma-separated KEY=VALUE result-store seeds")
		restore    = flag.Bool("restore", false, "Replay declarations from the restart store")
	)
	flag.Parse()

	opts := []udq.Option{}
	if *paramsFile != "" {
		opts = append(opts, udq.WithParamsFile(*paramsFile))
	}
	if *dbPath != "" {
		opts = append(opts, udq.WithSQLiteStore(*dbPath))
	}

	rt, err := udq.New(opts...)
	if err != nil {
		fatal(err)
	}
	defer rt.Close()

	if *restore {
		if err := rt.Restore(); err != nil {
			fatal(err)
		}
	}

	for _, w := range splitList(*wells) {
		rt.Summary().AddWell(w)
	}
	for _, g := range splitList(*groups) {
		rt.Summary().AddGroup(g)
	}
	if err := seedValues(rt, *seed); err != nil {
		fatal(err)
	}

	switch {
	case *oneShot != "":
		loc := udq.Location{File: "<cmdline>", Line: 1}
		if err := rt.AddRecord("DEFINE", "FUEXPR", []string{*oneShot}, loc, *step); err != nil {
			fatal(err)
		}
		if err := rt.Eval(*step); err != nil {
			fatal(err)
		}
		printResults(rt)

	case *deckFile != "":
		if err := loadDeck(rt, *deckFile, *step); err != nil {
			fatal(err)
		}
		if err := rt.Eval(*step); err != nil {
			fatal(err)
		}
		printResults(rt)
		if *dbPath != "" {
			if err := rt.Persist(); err != nil {
				fatal(err)
			}
		}

	default:
		if err := runREPL(rt, *step); err != nil {
			fatal(err)
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "udq:", err)
	os.Exit(1)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func seedValues(rt *udq.Runtime, seed string) error {
	for _, kv := range splitList(seed) {
		eq := strings.IndexByte(kv, '=')
		if eq < 0 {
			return fmt.Errorf("bad seed %q, expected KEY=VALUE", kv)
		}
		v, err := strconv.ParseFloat(kv[eq+1:], 64)
		if err != nil {
			return fmt.Errorf("bad seed value in %q: %w", kv, err)
		}
		rt.Summary().Update(kv[:eq], v)
	}
	return nil
}

// loadDeck reads the UDQ sections of a deck file. Records hold whitespace
// separated fields, end at a trailing '/', and the section closes with a
// lone '/'. Lines starting with -- are comments.
func loadDeck(rt *udq.Runtime, path string, step int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	inUDQ := false
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if !inUDQ {
			if strings.EqualFold(line, "UDQ") {
				inUDQ = true
			}
			continue
		}
		if line == "/" {
			inUDQ = false
			continue
		}

		action, quantity, data, err := splitRecord(line)
		if err != nil {
			return fmt.Errorf("%s line %d: %w", path, lineno, err)
		}
		loc := udq.Location{File: path, Line: lineno}
		if err := rt.AddRecord(action, quantity, data, loc, step); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// splitRecord separates ACTION and QUANTITY from the DATA fields. The
// expression part stays one field so the engine's own lexer sees it
// whole, quotes included.
func splitRecord(line string) (action, quantity string, data []string, err error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), "/")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", nil, fmt.Errorf("record needs at least ACTION and QUANTITY: %q", line)
	}
	action, quantity = fields[0], fields[1]
	if _, err := token.ParseAction(action); err != nil {
		return "", "", nil, err
	}

	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(line, action), " "))
	rest = strings.TrimSpace(strings.TrimPrefix(rest, quantity))
	if strings.EqualFold(action, "DEFINE") {
		if rest != "" {
			data = []string{rest}
		}
	} else {
		data = strings.Fields(rest)
	}
	return action, quantity, data, nil
}

func printResults(rt *udq.Runtime) {
	keys := rt.Summary().Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := rt.Summary().Get(k)
		fmt.Printf("%-20s %g\n", k, v)
	}
}
