// Copyright (c) 2024 mStar
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package repl drives a line oriented command prompt. The compositor
// hangs it off stdin, tests feed it whatever script they like
package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// MessageHandler turns one input line into the reply to print. An error
// stops the repl and travels out of Run
type MessageHandler func(string, *Repl) (string, error)

// ReadCloser combines the Reader and Closer interfaces
type ReadCloser interface {
	io.Reader
	io.Closer
}

type Repl struct {
	Input  ReadCloser
	Output io.WriteCloser

	prompt  string
	scanner *bufio.Scanner
	writer  *bufio.Writer
}

// NewRepl builds a repl over the given streams, stdin and stdout when
// nil. Both get closed once the repl stops, hand in wrappers if the
// real streams need to survive it
func NewRepl(in ReadCloser, out io.WriteCloser) Repl {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return Repl{
		Input:   in,
		Output:  out,
		prompt:  "> ",
		scanner: bufio.NewScanner(in),
		writer:  bufio.NewWriter(out),
	}
}

// SetPrompt replaces the "> " shown before each line. Empty disables it
func (r *Repl) SetPrompt(p string) {
	r.prompt = p
}

// Run reads lines until the input ends or the handler errors, feeding
// every line to the handler and printing what comes back. Empty replies
// print nothing. Blocks for the life of the repl
func (r *Repl) Run(onMessage MessageHandler) error {
	for {
		if err := r.write(r.prompt); err != nil {
			r.Close()
			return err
		}
		if !r.scanner.Scan() {
			break
		}
		line := r.scanner.Text()
		res, err := onMessage(line, r)
		if err != nil {
			r.Close()
			return fmt.Errorf("handler stopped on %q: %w", line, err)
		}
		if res != "" {
			if err := r.write(res + "\n"); err != nil {
				r.Close()
				return err
			}
		}
	}
	return r.scanner.Err()
}

func (r *Repl) write(s string) error {
	if s == "" {
		return nil
	}
	if _, err := r.writer.WriteString(s); err != nil {
		return fmt.Errorf("failed to write %q: %w", s, err)
	}
	return r.writer.Flush()
}

// Close stops the repl by closing both its streams
func (r *Repl) Close() {
	r.Input.Close()
	r.Output.Close()
}
