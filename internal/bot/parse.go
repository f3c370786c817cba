package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/tazhate/classbot/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	shortIDLen  = 8
	minIDPrefix = 4
)

// parseSlot parses "Mon 09:00".
func parseSlot(s string) (*domain.ClassTime, error) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return nil, fmt.Errorf("expected <day> <HH:MM>, got %q", s)
	}
	day, err := domain.ParseDay(fields[0])
	if err != nil {
		return nil, err
	}
	at, err := domain.ParseTimeOfDay(fields[1])
	if err != nil {
		return nil, err
	}
	return &domain.ClassTime{Day: day, At: at}, nil
}

// parseAddClass parses "<name> <day> <HH:MM>[, <day> <HH:MM>...]". The name
// may contain spaces; the first slot is the last two words before the first
// comma.
func parseAddClass(args string) (string, []*domain.ClassTime, error) {
	chunks := strings.Split(args, ",")
	head := strings.Fields(chunks[0])
	if len(head) < 3 {
		return "", nil, fmt.Errorf("expected <name> <day> <HH:MM>")
	}

	name := strings.Join(head[:len(head)-2], " ")
	first, err := parseSlot(strings.Join(head[len(head)-2:], " "))
	if err != nil {
		return "", nil, err
	}

	times := []*domain.ClassTime{first}
	for _, chunk := range chunks[1:] {
		ct, err := parseSlot(chunk)
		if err != nil {
			return "", nil, err
		}
		times = append(times, ct)
	}
	return name, times, nil
}

// parseDue parses "YYYY-MM-DD HH:MM" in loc and returns the rest of the
// words.
func parseDue(args string, loc *time.Location) (time.Time, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return time.Time{}, "", fmt.Errorf("expected <YYYY-MM-DD> <HH:MM>")
	}
	date, err := time.ParseInLocation(dateLayout, fields[0], loc)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("invalid date %q", fields[0])
	}
	at, err := domain.ParseTimeOfDay(fields[1])
	if err != nil {
		return time.Time{}, "", err
	}
	return at.On(date), strings.Join(fields[2:], " "), nil
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

// matchID returns the single id starting with prefix.
func matchID(prefix string, ids []string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < minIDPrefix {
		return "", fmt.Errorf("id %q is too short", prefix)
	}
	var found string
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if found != "" {
			return "", fmt.Errorf("id %q is ambiguous", prefix)
		}
		found = id
	}
	if found == "" {
		return "", fmt.Errorf("id %s: %w", prefix, domain.ErrNotFound)
	}
	return found, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
