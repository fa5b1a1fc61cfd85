package candidateloader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"batch_transfer/internal/domain/entity"
	"batch_transfer/internal/pkg/utils"
)

// LoadCandidates reads wallet/token pairs from filePath.
//
// A .json file holds an array of {walletAddress, tokenAddresses}. Any other file is read
// line by line as "<wallet> <token>[,<token>...]"; empty lines and lines starting with #
// are skipped. Tokens of repeated wallets are merged in file order.
func LoadCandidates(filePath string, loggerInfo func(msg string, args ...any)) ([]entity.CandidatePair, error) {
	if strings.EqualFold(filepath.Ext(filePath), ".json") {
		pairs, err := utils.LoadJSONFile[[]entity.CandidatePair](filePath)
		if err != nil {
			return nil, err
		}
		if loggerInfo != nil {
			loggerInfo("Candidates loaded successfully from file", "count", len(pairs), "path", filePath)
		}
		return pairs, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate file %s: %w", filePath, err)
	}
	defer file.Close()

	var pairs []entity.CandidatePair
	index := make(map[string]int)
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			if loggerInfo != nil {
				loggerInfo("Skipping malformed candidate line", "file", filePath, "line_number", lineNum, "line", line)
			}
			continue
		}
		wallet := fields[0]
		var tokens []string
		for _, t := range strings.Split(fields[1], ",") {
			if t = strings.TrimSpace(t); t != "" {
				tokens = append(tokens, t)
			}
		}
		if len(tokens) == 0 {
			continue
		}
		if i, ok := index[wallet]; ok {
			pairs[i].TokenAddresses = append(pairs[i].TokenAddresses, tokens...)
			continue
		}
		index[wallet] = len(pairs)
		pairs = append(pairs, entity.CandidatePair{WalletAddress: wallet, TokenAddresses: tokens})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning candidate file %s: %w", filePath, err)
	}

	if loggerInfo != nil {
		loggerInfo("Candidates loaded successfully from file", "count", len(pairs), "path", filePath)
	}
	return pairs, nil
}
