// Package sample builds scoreboard graphs: the fixed demonstration graph
// and randomized ones for exercising the codec.
package sample

import (
	"time"

	"github.com/okian/ctfscores/internal/domain/model"
)

// NoobCTF returns the demonstration event: rev1 unsolved, pwn1 solved with
// a teammate.
func NoobCTF() *model.Event {
	e := model.NewEvent("NoobCTF", model.NewDate(2021, time.January, 10))
	e.AddChallenge(model.NewChallenge("rev1"))

	pwn := model.NewChallenge("pwn1")
	pwn.Teammate = "grmmpff"
	pwn.Points = 498
	e.AddChallenge(pwn)
	return e
}

// Demo returns scores holding NoobCTF and LamerCTF, the latter dated today
// and active.
func Demo(today model.Date) *model.Scores {
	s := model.NewScores()
	s.NewEvent(NoobCTF())
	s.NewEvent(model.NewEvent("LamerCTF", today))
	return s
}
