package uci

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

type Options struct {
	Threads        int
	HashMB         int
	SkillLevel     int
	MultiPV        int
	MoveTimeMillis int
}

// DefaultOptions mirrors the classic one-shot configuration: every core,
// 512MB hash, full strength, a single line and a one second search.
func DefaultOptions() Options {
	return Options{
		Threads:        runtime.NumCPU(),
		HashMB:         512,
		SkillLevel:     20,
		MultiPV:        1,
		MoveTimeMillis: 1000,
	}
}

func validateOptions(opt Options) error {
	if opt.SkillLevel < 0 || opt.SkillLevel > 20 {
		return fmt.Errorf("skill level %d out of range 0-20", opt.SkillLevel)
	}
	if opt.HashMB <= 0 {
		return fmt.Errorf("hash size must be > 0: %d", opt.HashMB)
	}
	if opt.MultiPV <= 0 {
		return fmt.Errorf("multipv must be > 0: %d", opt.MultiPV)
	}
	if opt.MoveTimeMillis <= 0 {
		return fmt.Errorf("movetime must be > 0: %d", opt.MoveTimeMillis)
	}
	return nil
}

func configureCommands(opt Options) []string {
	threads := opt.Threads
	if threads <= 0 {
		threads = 1
	}
	return []string{
		fmt.Sprintf("setoption name Threads value %d", threads),
		fmt.Sprintf("setoption name Hash value %d", opt.HashMB),
		fmt.Sprintf("setoption name Skill Level value %d", opt.SkillLevel),
		fmt.Sprintf("setoption name MultiPV value %d", opt.MultiPV),
	}
}

func buildPositionCommand(fen string) string {
	fen = strings.TrimSpace(fen)
	if fen == "" || fen == "startpos" {
		return "position startpos"
	}
	return "position fen " + fen
}

func buildGoCommand(opt Options) string {
	return strings.Join([]string{"go", "movetime", strconv.Itoa(opt.MoveTimeMillis)}, " ")
}
