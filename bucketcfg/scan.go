package bucketcfg

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// scanStrategy is the last-resort extractor: a line-oriented scan that needs
// no YAML toolchain at all. It walks the file looking for the section line,
// then a buckets: block, then the named key, then Bucket:/Prefix: lines.
// Section boundaries are the column-0 lines; inside a section, mapping
// structure is inferred from the line order the descriptor convention
// guarantees. The scan never crosses into a sibling section: a key that is
// absent from the requested section stays unresolved even when another
// section defines it.
type scanStrategy struct{}

func (scanStrategy) name() string { return "scan" }

func (scanStrategy) extract(path, section, key string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	const (
		wantSection = iota
		wantBuckets
		wantKey
		inKey
	)
	state := wantSection
	var bucket, prefix string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		topLevel := raw[0] != ' ' && raw[0] != '\t'

		// A new column-0 mapping ends the requested section.
		if topLevel && state != wantSection {
			if state == inKey {
				return finishScan(bucket, prefix, section, key)
			}
			return "", "", fmt.Errorf("section %q ended before buckets.%s", section, key)
		}

		switch state {
		case wantSection:
			if topLevel && line == section+":" {
				state = wantBuckets
			}
		case wantBuckets:
			if line == "buckets:" {
				state = wantKey
			}
		case wantKey:
			if line == key+":" {
				state = inKey
			}
		case inKey:
			if v, ok := scalarValue(line, "Bucket"); ok {
				bucket = v
				continue
			}
			if v, ok := scalarValue(line, "Prefix"); ok {
				prefix = v
				continue
			}
			// Any other mapping key ends the bucket entry.
			if strings.HasSuffix(line, ":") || strings.Contains(line, ":") {
				return finishScan(bucket, prefix, section, key)
			}
		}
		if state == inKey && bucket != "" && prefix != "" {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", "", err
	}
	if state != inKey {
		return "", "", fmt.Errorf("scan did not reach %s.buckets.%s", section, key)
	}
	return finishScan(bucket, prefix, section, key)
}

func finishScan(bucket, prefix, section, key string) (string, string, error) {
	if bucket == "" {
		return "", "", fmt.Errorf("no Bucket line found under %s.buckets.%s", section, key)
	}
	return bucket, prefix, nil
}

// scalarValue matches lines like `Bucket: my-bucket` (any indentation,
// optionally quoted) and returns the unquoted value.
func scalarValue(line, field string) (string, bool) {
	rest, ok := strings.CutPrefix(line, field+":")
	if !ok {
		return "", false
	}
	v := strings.TrimSpace(rest)
	v = strings.Trim(v, `"'`)
	return v, true
}
