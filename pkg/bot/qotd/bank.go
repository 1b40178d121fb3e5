package qotd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/smith3v/tg-couple-bot/pkg/db"
	"github.com/smith3v/tg-couple-bot/pkg/logger"
	"gorm.io/gorm/clause"
)

const importBatchSize = 200

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseBank reads one question per line. Blank lines and lines starting with
// '#' are skipped, as are repeats within the input.
func ParseBank(data []byte) []string {
	data = bytes.TrimPrefix(data, utf8BOM)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	seen := make(map[string]struct{})
	var out []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}

// ImportBank inserts questions from r that are not yet in the bank and
// returns how many were added.
func ImportBank(r io.Reader) (int, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read question bank: %w", err)
	}
	lines := ParseBank(data)
	if len(lines) == 0 {
		return 0, nil
	}
	rows := make([]db.Question, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, db.Question{Text: line})
	}
	res := db.DB.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, importBatchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("import question bank: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// ImportBankFile loads the bundled bank. A missing file is not an error.
func ImportBankFile(path string) (int, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		logger.Warn("question bank file not found", "path", path)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer file.Close()
	added, err := ImportBank(file)
	if err != nil {
		return 0, err
	}
	logger.Info("question bank loaded", "path", path, "added", added)
	return added, nil
}
