package session

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/AltairaLabs/voice-gateway/internal/eventcodec"
)

var historyLine = regexp.MustCompile(`(?i)^(User|Assistant):\s*(.*)$`)

// ParseHistory parses a transcript into an ordered sequence of
// (role, text) messages (§4.4 "History injection", §8 property 7). Lines
// matching `^(User|Assistant):\s*(.*)$` (case-insensitive) produce a
// message with the matching role, normalized to User/Assistant
// regardless of input case; every other line, including blank lines, is
// ignored. Order is preserved.
func ParseHistory(transcript string) []HistoryMessage {
	var out []HistoryMessage
	scanner := bufio.NewScanner(strings.NewReader(transcript))
	for scanner.Scan() {
		line := scanner.Text()
		m := historyLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		role := eventcodec.RoleUser
		if strings.EqualFold(m[1], "Assistant") {
			role = eventcodec.RoleAssistant
		}
		out = append(out, HistoryMessage{Role: role, Text: m[2]})
	}
	return out
}
