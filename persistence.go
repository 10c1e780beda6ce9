package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

// LoadLedger reads the persisted run-cycle counters. A missing file is
// created with zeros.
func LoadLedger(path string) (c1, c2 uint64, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("persistence file %s not found, creating with zeros", path)
			return 0, 0, SaveLedger(path, 0, 0)
		}
		return 0, 0, fmt.Errorf("open persistence %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		n, perr := strconv.ParseUint(val, 10, 64)
		if perr != nil {
			continue
		}
		switch key {
		case "C1RunCs":
			c1 = n
		case "C2RunCs":
			c2 = n
		}
	}
	return c1, c2, sc.Err()
}

// SaveLedger writes the run-cycle counters atomically enough for this
// single-writer daemon: write to a temp file then rename over the target,
// so external readers never see a half-written file.
func SaveLedger(path string, c1, c2 uint64) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := fmt.Fprintf(f, "C1RunCs=%d\nC2RunCs=%d\n", c1, c2); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmp, path, err)
	}
	return nil
}
