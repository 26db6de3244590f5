package index

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Meta is the content of index.meta.
type Meta struct {
	Fasta    FileFingerprint
	Params   string // canonical digestion parameters, see Options.Key
	Proteins int
	Peptides int
	Created  time.Time
}

func writeMeta(path string, m Meta) error {
	lines := []string{
		"fasta_size=" + strconv.FormatInt(m.Fasta.Size, 10),
		"fasta_modtime=" + m.Fasta.ModTime.UTC().Format(time.RFC3339Nano),
		"params=" + m.Params,
		"proteins=" + strconv.Itoa(m.Proteins),
		"peptides=" + strconv.Itoa(m.Peptides),
		"created_at=" + time.Now().UTC().Format(time.RFC3339),
		"",
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644)
}

func readMeta(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

// ReadMeta parses the index.meta file of dir.
func ReadMeta(dir string) (Meta, error) {
	kv, err := readMeta(Paths(dir).Meta)
	if err != nil {
		return Meta{}, err
	}
	var m Meta
	m.Fasta.Size, _ = strconv.ParseInt(kv["fasta_size"], 10, 64)
	m.Fasta.ModTime, _ = time.Parse(time.RFC3339Nano, kv["fasta_modtime"])
	m.Params = kv["params"]
	m.Proteins, _ = strconv.Atoi(kv["proteins"])
	m.Peptides, _ = strconv.Atoi(kv["peptides"])
	m.Created, _ = time.Parse(time.RFC3339, kv["created_at"])
	return m, nil
}

// Valid checks whether the index in dir was built from fasta with params.
func Valid(dir string, fasta FileFingerprint, params string) bool {
	p := Paths(dir)
	meta, err := readMeta(p.Meta)
	if err != nil {
		return false
	}

	checks := []struct{ key, val string }{
		{"fasta_size", strconv.FormatInt(fasta.Size, 10)},
		{"fasta_modtime", fasta.ModTime.UTC().Format(time.RFC3339Nano)},
		{"params", params},
	}
	for _, c := range checks {
		if meta[c.key] != c.val {
			return false
		}
	}

	for _, f := range []string{p.Proteins, p.Peptides} {
		if _, err := os.Stat(f); err != nil {
			return false
		}
	}
	return true
}
