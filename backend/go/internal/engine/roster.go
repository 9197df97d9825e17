package engine

import (
	"errors"
	"strings"

	"Koro/backend/go/internal/models"

	"github.com/tidwall/gjson"
)

// Delimiters of the character roster the model embeds in script-workshop replies.
const (
	RosterOpen  = "[CHARACTER_ROSTER]"
	RosterClose = "[/CHARACTER_ROSTER]"
)

var (
	errRosterUnterminated = errors.New("character roster block was never closed")
	errRosterInvalid      = errors.New("character roster block is not a valid JSON array")
)

// RosterParser re-scans the cumulative stream buffer on every increment.
// It hides roster blocks from the visible text and keeps the last roster that parsed.
type RosterParser struct {
	roster []models.Character
	err    error
}

// Feed takes the whole buffer received so far and returns the text to show.
// The visible text never contains a roster block nor a trailing partial opening marker,
// so successive results only ever grow.
func (p *RosterParser) Feed(buf string) (string, []models.Character) {
	p.err = nil
	var visible strings.Builder
	rest := buf
	for {
		i := strings.Index(rest, RosterOpen)
		if i < 0 {
			visible.WriteString(rest[:len(rest)-partialMarkerSuffix(rest, RosterOpen)])
			break
		}
		visible.WriteString(rest[:i])
		after := rest[i+len(RosterOpen):]
		j := strings.Index(after, RosterClose)
		if j < 0 {
			// still arriving: use it only if it already parses
			if roster, ok := parseRoster(after); ok {
				p.roster = roster
			} else {
				p.err = errRosterUnterminated
			}
			break
		}
		if roster, ok := parseRoster(after[:j]); ok {
			p.roster = roster
		} else {
			p.err = errRosterInvalid
		}
		rest = after[j+len(RosterClose):]
	}
	return visible.String(), p.roster
}

// Err reports the problem with the last fed buffer, if any. Only meaningful once the stream ended.
func (p *RosterParser) Err() error {
	return p.err
}

// Roster returns the last successfully parsed roster.
func (p *RosterParser) Roster() []models.Character {
	return p.roster
}

func parseRoster(payload string) ([]models.Character, bool) {
	payload = strings.TrimSpace(payload)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	payload = strings.TrimSpace(payload)

	if !gjson.Valid(payload) {
		return nil, false
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil, false
	}
	roster := []models.Character{}
	parsed.ForEach(func(_, v gjson.Result) bool {
		name := strings.TrimSpace(v.Get("name").String())
		if name == "" {
			return true
		}
		roster = append(roster, models.Character{
			Name:        name,
			Role:        v.Get("role").String(),
			Voice:       v.Get("voice").String(),
			Description: v.Get("description").String(),
		})
		return true
	})
	return roster, true
}

// partialMarkerSuffix returns the length of the longest suffix of s that is a proper prefix of marker.
func partialMarkerSuffix(s, marker string) int {
	n := len(marker) - 1
	if len(s) < n {
		n = len(s)
	}
	for k := n; k > 0; k-- {
		if strings.HasSuffix(s, marker[:k]) {
			return k
		}
	}
	return 0
}
