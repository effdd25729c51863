package export

import (
	"bufio"
	"io"
)

// WriteLabels writes one series name per line.
func WriteLabels(w io.Writer, names []string) error {
	bw := bufio.NewWriter(w)
	for _, name := range names {
		if _, err := bw.WriteString(name + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveLabels writes names to path.
func SaveLabels(path string, names []string, overwrite bool) error {
	f, err := create(path, overwrite)
	if err != nil {
		return err
	}
	if err := WriteLabels(f, names); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
