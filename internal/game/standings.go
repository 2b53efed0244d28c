package game

import (
	"fmt"
	"sort"
	"strings"
)

// Result is the outcome of a finished session.
type Result struct {
	Winners []string
	Score   int
	Tie     bool
}

// Names joins the winners for display.
func (r Result) Names() string {
	return strings.Join(r.Winners, ", ")
}

// Message is the status line announced at game over.
func (r Result) Message() string {
	if r.Tie {
		return fmt.Sprintf("Unentschieden zwischen %s mit je %d Punkten.", r.Names(), r.Score)
	}
	return fmt.Sprintf("%s hat das Spiel mit %d Pärchen gewonnen", r.Names(), r.Score)
}

// Congratulation is the chat line sent to every player at game over.
func (r Result) Congratulation() string {
	return fmt.Sprintf("Herzlichen Glückwunsch an %s 🏆🏆🏆🏆🏆🏆🏆.\nDas Spiel ist zu Ende.", r.Names())
}

// Standings ranks players by score, highest first, ties by name.
func Standings(players []*Player) []Player {
	ranked := make([]Player, len(players))
	for i, p := range players {
		ranked[i] = *p
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// Winner computes the winner, or every player sharing the top score.
func Winner(players []*Player) Result {
	ranked := Standings(players)
	if len(ranked) == 0 {
		return Result{}
	}

	top := ranked[0].Score
	res := Result{Score: top}
	for _, p := range ranked {
		if p.Score != top {
			break
		}
		res.Winners = append(res.Winners, p.Name)
	}
	res.Tie = len(res.Winners) > 1
	return res
}
