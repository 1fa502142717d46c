package loadgen

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v7"
)

// maxNameRunes mirrors the server's name limit so expectations match what is stored.
const maxNameRunes = 24

// Plan is the generated workload and what the board should hold afterwards.
type Plan struct {
	Submissions []Submission
	Expected    map[string]int64 // name -> max score sent
}

// generate builds SubmissionsPerPlayer scores for each of Players names. Names
// start with a run prefix and an index so they are unique within and across runs.
func generate(cfg Config, runID string) Plan {
	faker := gofakeit.New(cfg.Seed)

	prefix := runID
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}

	plan := Plan{
		Submissions: make([]Submission, 0, cfg.Players*cfg.SubmissionsPerPlayer),
		Expected:    make(map[string]int64, cfg.Players),
	}
	for i := 0; i < cfg.Players; i++ {
		name := playerName(prefix, i, faker.FirstName())
		for j := 0; j < cfg.SubmissionsPerPlayer; j++ {
			score := int64(faker.Number(0, cfg.MaxScore))
			plan.Submissions = append(plan.Submissions, Submission{Name: name, Score: score})
			if best, ok := plan.Expected[name]; !ok || score > best {
				plan.Expected[name] = score
			}
		}
	}

	// Interleave players so one player's submissions race each other.
	faker.ShuffleAnySlice(plan.Submissions)
	return plan
}

func playerName(prefix string, i int, first string) string {
	name := prefix + "-" + strconv.Itoa(i) + "-" + strings.ReplaceAll(first, " ", "")
	for utf8.RuneCountInString(name) > maxNameRunes {
		_, size := utf8.DecodeLastRuneInString(name)
		name = name[:len(name)-size]
	}
	return strings.TrimRight(name, "-")
}
