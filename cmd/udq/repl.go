// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
	"nickandperla.net/udq/pkg/udq"
)

func printBanner() {
	fmt.Println("udq REPL (Ctrl+D to exit)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  well  W1 [W2 ...]          declare wells")
	fmt.Println("  group G1 [G2 ...]          declare groups")
	fmt.Println("  set   KEY VALUE            seed a summary value (e.g. set WOPR:P1 150)")
	fmt.Println("  step  [N]                  evaluate all declarations at report step N")
	fmt.Println("  show                       print the summary store")
	fmt.Println("  deps                       print summary keys the declarations need")
	fmt.Println()
	fmt.Println("Anything else is a deck record, e.g.:")
	fmt.Println("  DEFINE FUTOT SUM(WOPR) /")
	fmt.Println("  ASSIGN WUGAS 'P*' 0.0 /")
	fmt.Println()
}

func runREPL(rt *udq.Runtime, step int) error {
	tty := term.IsTerminal(int(os.Stdin.Fd()))
	if tty {
		printBanner()
	}

	reader := bufio.NewReader(os.Stdin)
	lineno := 0
	for {
		if tty {
			fmt.Print(">>> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			if tty {
				fmt.Println()
			}
			return nil
		}
		lineno++
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}

		if err := replLine(rt, line, lineno, &step); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func replLine(rt *udq.Runtime, line string, lineno int, step *int) error {
	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "well":
		for _, w := range fields[1:] {
			rt.Summary().AddWell(w)
		}
		return nil

	case "group":
		for _, g := range fields[1:] {
			rt.Summary().AddGroup(g)
		}
		return nil

	case "set":
		if len(fields) != 3 {
			return fmt.Errorf("usage: set KEY VALUE")
		}
		v, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return fmt.Errorf("bad value %q: %w", fields[2], err)
		}
		rt.Summary().Update(fields[1], v)
		return nil

	case "step":
		if len(fields) > 1 {
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("bad step %q: %w", fields[1], err)
			}
			*step = n
		}
		if err := rt.Eval(*step); err != nil {
			return err
		}
		printResults(rt)
		*step++
		return nil

	case "show":
		printResults(rt)
		return nil

	case "deps":
		keys := rt.RequiredSummary()
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil

	default:
		action, quantity, data, err := splitRecord(line)
		if err != nil {
			return err
		}
		loc := udq.Location{File: "<repl>", Line: lineno}
		return rt.AddRecord(action, quantity, data, loc, *step)
	}
}
