// Package numerology derives Pythagorean numerology figures from a full name
// and a birth date. Every function here is pure and safe for concurrent use.
package numerology

// karmicDebtNumbers are checked against raw sums only.
var karmicDebtNumbers = map[int]bool{13: true, 14: true, 16: true, 19: true}

// pinnacleBase is the age anchor the first band is measured from.
const pinnacleBase = 36

// Derive computes the bundle for fullName and dob (YYYY-MM-DD). It returns a
// *ValidationError when the name has no usable letters or the date is not a
// real calendar date.
func Derive(fullName, dob string) (Bundle, error) {
	name := NormalizeName(fullName)
	if name == "" {
		return Bundle{}, &ValidationError{Field: "fullName", Value: fullName, Reason: "no letters a-z after normalization"}
	}
	date, err := ParseBirthDate(dob)
	if err != nil {
		return Bundle{}, err
	}

	var vowelSum, consonantSum int
	var present [10]bool
	for _, r := range name {
		v, _ := ValueOf(r)
		present[v] = true
		if IsVowel(r) {
			vowelSum += v
		} else {
			consonantSum += v
		}
	}
	nameSum := vowelSum + consonantSum
	lifePathSum := date.DigitSum()

	b := Bundle{
		Essence:  Reduce(vowelSum),
		Image:    Reduce(consonantSum),
		Mission:  Reduce(nameSum),
		LifePath: Reduce(lifePathSum),
		Sums: Sums{
			Vowels:     vowelSum,
			Consonants: consonantSum,
			Name:       nameSum,
			LifePath:   lifePathSum,
		},
	}

	b.KarmicLessons = []int{}
	for v := 1; v <= 9; v++ {
		if !present[v] {
			b.KarmicLessons = append(b.KarmicLessons, v)
		}
	}
	b.Karmas = renderKarmas(b.KarmicLessons)

	b.KarmicDebts = karmicDebts(date.Day, lifePathSum, vowelSum, consonantSum, nameSum)
	b.KarmicDebt = renderDebts(b.KarmicDebts)

	rm, rd, ry := Reduce(date.Month), Reduce(date.Day), Reduce(date.Year)
	bands := ageBands(b.LifePath)

	p1 := Reduce(rm + rd)
	p2 := Reduce(rd + ry)
	p3 := Reduce(p1 + p2)
	p4 := Reduce(rm + ry)
	b.PinnacleStages = withValues(bands, p1, p2, p3, p4)
	b.Pinnacles = renderStages(pinnacleNoun, b.PinnacleStages)

	c1 := Reduce(abs(rm - rd))
	c2 := Reduce(abs(rd - ry))
	c3 := Reduce(abs(c1 - c2))
	c4 := Reduce(abs(rm - ry))
	b.ChallengeStages = withValues(bands, c1, c2, c3, c4)
	b.Challenges = renderStages(challengeNoun, b.ChallengeStages)

	return b, nil
}

func karmicDebts(day, lifePathSum, vowelSum, consonantSum, nameSum int) []Debt {
	candidates := []struct {
		source DebtSource
		value  int
		skip   bool
	}{
		{DebtBirthDay, day, false},
		{DebtLifePath, lifePathSum, lifePathSum == Master22 || lifePathSum == Master33},
		{DebtEssence, vowelSum, false},
		{DebtImage, consonantSum, false},
		{DebtMission, nameSum, nameSum == Master22 || nameSum == Master33},
	}

	debts := []Debt{}
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c.skip || !karmicDebtNumbers[c.value] {
			continue
		}
		d := Debt{Source: c.source, Value: c.value}
		if seen[d.Label()] {
			continue
		}
		seen[d.Label()] = true
		debts = append(debts, d)
	}
	return debts
}

// ageBands derives the four contiguous bands from the already reduced life
// path. lifePath may be a master number; ForceReduce collapses it anyway.
func ageBands(lifePath int) [4]Stage {
	end1 := pinnacleBase - ForceReduce(lifePath)
	end2 := end1 + 10
	end3 := end2 + 10
	return [4]Stage{
		{StartAge: 0, EndAge: end1},
		{StartAge: end1 + 1, EndAge: end2},
		{StartAge: end2 + 1, EndAge: end3},
		{StartAge: end3 + 1, OpenEnded: true},
	}
}

func withValues(bands [4]Stage, values ...int) [4]Stage {
	out := bands
	for i := range out {
		out[i].Value = values[i]
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
