package filechunks

import (
	"bufio"
	"math"
	"os"
)

// countLines counts non-empty lines in path using a buffered scanner,
// the same buffering style the filesystem reader uses for traversal.
func countLines(path string, bufSize int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, bufSize), bufSize*16)
	n := 0
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		n++
	}
	return n, sc.Err()
}

// readLines reads every non-empty line of path into memory.
func readLines(path string, bufSize int) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, bufSize), bufSize*16)
	var lines [][]byte
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		line := make([]byte, len(sc.Bytes()))
		copy(line, sc.Bytes())
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

// appendFloat32 appends v's little-endian IEEE-754 bytes to buf.
func appendFloat32(buf []byte, v float32) []byte {
	bits := math.Float32bits(v)
	return append(buf, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}
