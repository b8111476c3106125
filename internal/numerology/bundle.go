package numerology

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// NoKarmas is rendered when every value 1..9 occurs in the name.
	NoKarmas = "Ninguno aparente"
	// NoKarmicDebt is rendered when no raw sum is a karmic debt number.
	NoKarmicDebt = "Ninguna aparente"
)

// Bundle is the full set of figures derived from a name and a birth date.
// The rendered string fields are the exact text embedded in report prompts.
type Bundle struct {
	Essence  int `json:"essence"`
	Image    int `json:"image"`
	Mission  int `json:"mission"`
	LifePath int `json:"lifePath"`

	Karmas     string `json:"karmas"`
	KarmicDebt string `json:"karmicDebt"`
	Pinnacles  string `json:"pinnacles"`
	Challenges string `json:"challenges"`

	Sums            Sums     `json:"sums"`
	KarmicLessons   []int    `json:"karmicLessons"`
	KarmicDebts     []Debt   `json:"karmicDebts"`
	PinnacleStages  [4]Stage `json:"pinnacleStages"`
	ChallengeStages [4]Stage `json:"challengeStages"`
}

// Sums are the raw, pre-reduction totals.
type Sums struct {
	Vowels     int `json:"vowels"`
	Consonants int `json:"consonants"`
	Name       int `json:"name"`
	LifePath   int `json:"lifePath"`
}

// DebtSource identifies which raw sum produced a karmic debt hit.
type DebtSource string

const (
	DebtBirthDay DebtSource = "birthDay"
	DebtLifePath DebtSource = "lifePath"
	DebtEssence  DebtSource = "essence"
	DebtImage    DebtSource = "image"
	DebtMission  DebtSource = "mission"
)

var debtLabels = map[DebtSource]string{
	DebtBirthDay: "Día de Nacimiento",
	DebtLifePath: "Sendero Natal",
	DebtEssence:  "Esencia",
	DebtImage:    "Imagen",
	DebtMission:  "Misión",
}

// Debt is a single karmic debt hit.
type Debt struct {
	Source DebtSource `json:"source"`
	Value  int        `json:"value"`
}

// Label renders the hit as it appears in reports, e.g. "Día de Nacimiento (13)".
func (d Debt) Label() string {
	return fmt.Sprintf("%s (%d)", debtLabels[d.Source], d.Value)
}

// Stage is one pinnacle or challenge with its age band. StartAge 0 means
// birth; an open-ended band has no EndAge.
type Stage struct {
	StartAge  int  `json:"startAge"`
	EndAge    int  `json:"endAge,omitempty"`
	OpenEnded bool `json:"openEnded,omitempty"`
	Value     int  `json:"value"`
}

var stageOrdinals = [4]string{"Primer", "Segundo", "Tercer", "Cuarto"}

const (
	pinnacleNoun  = "Pináculo"
	challengeNoun = "Desafío"
)

// Range renders the age band, e.g. "Nacimiento - 33 años".
func (s Stage) Range() string {
	switch {
	case s.OpenEnded:
		return fmt.Sprintf("desde los %d años", s.StartAge)
	case s.StartAge == 0:
		return fmt.Sprintf("Nacimiento - %d años", s.EndAge)
	default:
		return fmt.Sprintf("%d - %d años", s.StartAge, s.EndAge)
	}
}

// PinnacleLabel returns the heading for pinnacle i (0-based), e.g. "Primer Pináculo".
func PinnacleLabel(i int) string {
	return stageOrdinals[i] + " " + pinnacleNoun
}

// ChallengeLabel returns the heading for challenge i (0-based), e.g. "Primer Desafío".
func ChallengeLabel(i int) string {
	return stageOrdinals[i] + " " + challengeNoun
}

func renderStages(noun string, stages [4]Stage) string {
	parts := make([]string, 0, len(stages))
	for i, s := range stages {
		parts = append(parts, fmt.Sprintf("%s %s (%s): Valor %d.", stageOrdinals[i], noun, s.Range(), s.Value))
	}
	return strings.Join(parts, " ")
}

func renderKarmas(lessons []int) string {
	if len(lessons) == 0 {
		return NoKarmas
	}
	parts := make([]string, 0, len(lessons))
	for _, v := range lessons {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ", ")
}

func renderDebts(debts []Debt) string {
	if len(debts) == 0 {
		return NoKarmicDebt
	}
	parts := make([]string, 0, len(debts))
	for _, d := range debts {
		parts = append(parts, d.Label())
	}
	return strings.Join(parts, "; ")
}
