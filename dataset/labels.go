package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/bsvm/codec"
)

// labelFile is the persisted label list of a training run.
type labelFile struct {
	Labels []int `json:"labels" yaml:"labels"`
}

// SaveLabels writes labels with c (codec.Default if nil). The first line
// holds the codec name so LoadLabels can pick the decoder.
func SaveLabels(w io.Writer, labels []int, c codec.Codec) error {
	if c == nil {
		c = codec.Default
	}
	data, err := c.Marshal(labelFile{Labels: labels})
	if err != nil {
		return fmt.Errorf("dataset: encode labels: %w", err)
	}
	if _, err := fmt.Fprintln(w, c.Name()); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// LoadLabels reads a label list written by SaveLabels.
func LoadLabels(r io.Reader) ([]int, error) {
	br := bufio.NewReader(r)
	name, err := br.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: label file header: %w", ErrParse, err)
	}
	c, ok := codec.ByName(strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("%w: unknown label codec %q", ErrParse, strings.TrimSpace(name))
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	var f labelFile
	if err := c.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: decode labels: %w", ErrParse, err)
	}
	return f.Labels, nil
}
