package ai

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Labels is a model's class vocabulary in training order.
type Labels []string

// Name returns the label for class index i.
func (l Labels) Name(i int) string {
	if i >= 0 && i < len(l) {
		return l[i]
	}
	return fmt.Sprintf("class_%d", i)
}

// Contains reports whether name is part of the vocabulary.
func (l Labels) Contains(name string) bool {
	for _, n := range l {
		if n == name {
			return true
		}
	}
	return false
}

// LoadLabels reads a vocabulary file. Text files hold one name per line;
// .json, .yaml and .yml files hold either a list or a "names" key with a list
// or an index->name map (the layout of ultralytics metadata).
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}

	var labels Labels
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		labels, err = parseStructuredLabels(data)
	default:
		labels, err = parseTextLabels(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// FindLabels loads the explicit vocabulary path or, when empty, looks for a
// file next to the weights: <weights>.labels, then <stem>.txt/.json/.yaml/.yml.
func FindLabels(weights, explicit string) (Labels, string, error) {
	if explicit != "" {
		labels, err := LoadLabels(explicit)
		return labels, explicit, err
	}

	stem := strings.TrimSuffix(weights, filepath.Ext(weights))
	candidates := []string{
		weights + ".labels",
		stem + ".txt",
		stem + ".json",
		stem + ".yaml",
		stem + ".yml",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			labels, err := LoadLabels(c)
			return labels, c, err
		}
	}
	return nil, "", fmt.Errorf("no label vocabulary found next to %s", weights)
}

func parseTextLabels(data []byte) (Labels, error) {
	var labels Labels
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	return labels, scanner.Err()
}

func parseStructuredLabels(data []byte) (Labels, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		var names *yaml.Node
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "names" {
				names = root.Content[i+1]
				break
			}
		}
		if names == nil {
			return nil, fmt.Errorf("no names key")
		}
		root = names
	}

	switch root.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := root.Decode(&list); err != nil {
			return nil, err
		}
		return Labels(list), nil
	case yaml.MappingNode:
		var indexed map[int]string
		if err := root.Decode(&indexed); err != nil {
			return nil, err
		}
		labels := make(Labels, len(indexed))
		for i := range labels {
			name, ok := indexed[i]
			if !ok {
				return nil, fmt.Errorf("names map is missing index %d", i)
			}
			labels[i] = name
		}
		return labels, nil
	default:
		return nil, fmt.Errorf("names must be a list or an index map")
	}
}
