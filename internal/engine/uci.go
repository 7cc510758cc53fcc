package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// stopGrace bounds how long a cancelled search waits for the engine to
// honor "stop" before its reader is left to drain in the background.
const stopGrace = 500 * time.Millisecond

// UCIEngine speaks the UCI protocol to a long-lived engine subprocess
// (stockfish or compatible) over stdin/stdout. A single instance is
// shared by all games; the mutex serializes searches.
type UCIEngine struct {
	cmd   *exec.Cmd
	in    *bufio.Writer
	out   *bufio.Scanner
	mu    sync.Mutex
	ready bool

	// abandoned holds the result channel of a cancelled search whose
	// reader is still draining the scanner. At most one goroutine may
	// scan engine output at a time; the next search first waits for
	// this reader to finish.
	abandoned chan searchOutput
}

type searchOutput struct {
	best  string
	score Score
	err   error
}

// NewUCIEngine starts the engine binary and performs the UCI handshake.
func NewUCIEngine(path string) (*UCIEngine, error) {
	cmd := exec.Command(path)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	e := &UCIEngine{
		cmd: cmd,
		in:  bufio.NewWriter(stdin),
		out: bufio.NewScanner(stdout),
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	// Handshake: "uci" -> "uciok", then "isready" -> "readyok".
	if err := e.send("uci"); err != nil {
		return nil, err
	}
	for e.out.Scan() {
		if e.out.Text() == "uciok" {
			break
		}
	}
	if err := e.awaitReady(); err != nil {
		return nil, err
	}
	e.ready = true
	return e, nil
}

func (e *UCIEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ready = false
	_ = e.send("quit")
	return e.cmd.Wait()
}

// BestMove searches the given position to the given depth and returns
// the engine's chosen move in UCI notation.
func (e *UCIEngine) BestMove(ctx context.Context, fen string, depth int) (string, error) {
	out, err := e.search(ctx, fen, depth)
	if err != nil {
		return "", err
	}
	if out.best == "" || out.best == "(none)" {
		return "", errors.New("engine returned no move")
	}
	return out.best, nil
}

// Evaluate searches the given position to the given depth and returns
// the engine's final reported score.
func (e *UCIEngine) Evaluate(ctx context.Context, fen string, depth int) (Score, error) {
	out, err := e.search(ctx, fen, depth)
	if err != nil {
		return Score{}, err
	}
	return out.score, nil
}

// search runs one position/go/bestmove exchange. The context deadline
// bounds the search; on cancellation a "stop" is issued, and if the
// engine ignores it the reader keeps draining so a later search can
// resync instead of racing it for the scanner.
func (e *UCIEngine) search(ctx context.Context, fen string, depth int) (searchOutput, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return searchOutput{}, errors.New("engine not ready")
	}
	if err := e.reclaim(); err != nil {
		return searchOutput{}, err
	}

	if err := e.send(fmt.Sprintf("position fen %s", fen)); err != nil {
		return searchOutput{}, err
	}
	if err := e.send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return searchOutput{}, err
	}

	readDone := make(chan searchOutput, 1)
	go func() {
		readDone <- e.scanSearch()
	}()

	select {
	case <-ctx.Done():
		_ = e.send("stop")
		select {
		case out := <-readDone:
			if out.err != nil {
				return searchOutput{}, out.err
			}
			// The aborted search's move answers a position the caller
			// no longer wants.
			return searchOutput{}, ctx.Err()
		case <-time.After(stopGrace):
			e.abandoned = readDone
			return searchOutput{}, ctx.Err()
		}
	case out := <-readDone:
		if out.err != nil {
			return searchOutput{}, out.err
		}
		return out, nil
	}
}

// scanSearch consumes engine output for one search: it tracks the last
// reported score and stops at the bestmove line.
func (e *UCIEngine) scanSearch() searchOutput {
	var out searchOutput
	for e.out.Scan() {
		line := e.out.Text()
		if strings.HasPrefix(line, "info ") {
			if score, ok := parseScore(line); ok {
				out.score = score
			}
			continue
		}
		if strings.HasPrefix(line, "bestmove ") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				out.best = fields[1]
			}
			return out
		}
	}
	out.err = e.out.Err()
	if out.err == nil {
		out.err = errors.New("engine output closed")
	}
	return out
}

// parseScore extracts "score cp N" or "score mate N" from an info line.
func parseScore(line string) (Score, bool) {
	fields := strings.Fields(line)
	for i := 0; i+2 < len(fields); i++ {
		if fields[i] != "score" {
			continue
		}
		n, err := strconv.Atoi(fields[i+2])
		if err != nil {
			return Score{}, false
		}
		switch fields[i+1] {
		case "cp":
			return Score{CP: n}, true
		case "mate":
			return Score{Mate: n}, true
		}
		return Score{}, false
	}
	return Score{}, false
}

// reclaim waits for an abandoned search's reader to drain the aborted
// output, then resyncs with an isready barrier before the next search.
func (e *UCIEngine) reclaim() error {
	if e.abandoned == nil {
		return nil
	}
	select {
	case out := <-e.abandoned:
		e.abandoned = nil
		if out.err != nil {
			return out.err
		}
		return e.awaitReady()
	default:
		return errors.New("engine recovering from an aborted search")
	}
}

func (e *UCIEngine) awaitReady() error {
	if err := e.send("isready"); err != nil {
		return err
	}
	for e.out.Scan() {
		if e.out.Text() == "readyok" {
			break
		}
	}
	return e.out.Err()
}

func (e *UCIEngine) send(cmd string) error {
	if _, err := fmt.Fprintln(e.in, cmd); err != nil {
		return err
	}
	return e.in.Flush()
}
