package numerology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAna(t *testing.T) {
	b, err := Derive("Ana", "1990-05-15")
	require.NoError(t, err)

	assert.Equal(t, 2, b.Essence)
	assert.Equal(t, 5, b.Image)
	assert.Equal(t, 7, b.Mission)
	assert.Equal(t, 3, b.LifePath)
	assert.Equal(t, Sums{Vowels: 2, Consonants: 5, Name: 7, LifePath: 30}, b.Sums)

	assert.Equal(t, []int{2, 3, 4, 6, 7, 8, 9}, b.KarmicLessons)
	assert.Equal(t, "2, 3, 4, 6, 7, 8, 9", b.Karmas)
	assert.Empty(t, b.KarmicDebts)
	assert.Equal(t, NoKarmicDebt, b.KarmicDebt)

	assert.Equal(t,
		"Primer Pináculo (Nacimiento - 33 años): Valor 11. "+
			"Segundo Pináculo (34 - 43 años): Valor 7. "+
			"Tercer Pináculo (44 - 53 años): Valor 9. "+
			"Cuarto Pináculo (desde los 54 años): Valor 6.",
		b.Pinnacles)
	assert.Equal(t,
		"Primer Desafío (Nacimiento - 33 años): Valor 1. "+
			"Segundo Desafío (34 - 43 años): Valor 5. "+
			"Tercer Desafío (44 - 53 años): Valor 4. "+
			"Cuarto Desafío (desde los 54 años): Valor 4.",
		b.Challenges)
}

func TestDeriveIgnoresNonLetters(t *testing.T) {
	b, err := Derive("José María", "1990-05-15")
	require.NoError(t, err)
	assert.Equal(t, 8, b.Essence)
	assert.Equal(t, 6, b.Image)
	assert.Equal(t, 5, b.Mission)
	assert.Equal(t, Sums{Vowels: 8, Consonants: 15, Name: 23, LifePath: 30}, b.Sums)
}

func TestDeriveNameWithoutVowelsOrConsonants(t *testing.T) {
	b, err := Derive("Bcd", "1990-07-15")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Essence)
	assert.Equal(t, 0, b.Sums.Vowels)
	assert.Equal(t, 9, b.Image)
	assert.Equal(t, 9, b.Mission)

	b, err = Derive("Aei", "1990-07-15")
	require.NoError(t, err)
	assert.Equal(t, 6, b.Essence)
	assert.Equal(t, 0, b.Image)
	assert.Equal(t, 0, b.Sums.Consonants)
	assert.Equal(t, 6, b.Mission)
}

func TestDeriveKarmasFromLetterValues(t *testing.T) {
	b, err := Derive("Abc Jkl", "1990-05-15")
	require.NoError(t, err)
	assert.Equal(t, "4, 5, 6, 7, 8, 9", b.Karmas)

	b, err = Derive("abcdefghi", "1990-05-15")
	require.NoError(t, err)
	assert.Empty(t, b.KarmicLessons)
	assert.Equal(t, NoKarmas, b.Karmas)
}

func TestDeriveBirthDayDebt(t *testing.T) {
	for _, day := range []string{"13", "14", "16", "19"} {
		b, err := Derive("Ana", "1985-03-"+day)
		require.NoError(t, err)
		assert.Contains(t, b.KarmicDebt, "Día de Nacimiento ("+day+")")
	}

	b, err := Derive("Ana", "1985-03-15")
	require.NoError(t, err)
	assert.NotContains(t, b.KarmicDebt, "Día de Nacimiento")
}

func TestKarmicDebtsOrderAndLabels(t *testing.T) {
	debts := karmicDebts(13, 16, 13, 14, 27)
	require.Len(t, debts, 4)
	assert.Equal(t, "Día de Nacimiento (13); Sendero Natal (16); Esencia (13); Imagen (14)", renderDebts(debts))

	debts = karmicDebts(2, 19, 5, 14, 19)
	assert.Equal(t, "Sendero Natal (19); Imagen (14); Misión (19)", renderDebts(debts))

	assert.Empty(t, karmicDebts(1, 22, 11, 11, 22))
}

func TestAgeBandsContiguous(t *testing.T) {
	for _, lifePath := range []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 11, 22, 33} {
		bands := ageBands(lifePath)
		assert.Equal(t, 0, bands[0].StartAge)
		assert.Less(t, bands[0].EndAge, bands[1].StartAge)
		assert.Equal(t, bands[0].EndAge+1, bands[1].StartAge)
		assert.Equal(t, bands[1].EndAge+1, bands[2].StartAge)
		assert.Equal(t, bands[2].EndAge+1, bands[3].StartAge)
		assert.Less(t, bands[1].StartAge, bands[1].EndAge)
		assert.True(t, bands[3].OpenEnded)
		assert.Zero(t, bands[3].EndAge)
	}
}

func TestAgeBandsCollapseMasterLifePath(t *testing.T) {
	assert.Equal(t, 34, ageBands(11)[0].EndAge)
	assert.Equal(t, 32, ageBands(22)[0].EndAge)
	assert.Equal(t, 30, ageBands(33)[0].EndAge)
	assert.Equal(t, 27, ageBands(9)[0].EndAge)
}

func TestDeriveMasterLifePath(t *testing.T) {
	b, err := Derive("Ana", "1991-09-09")
	require.NoError(t, err)
	assert.Equal(t, 38, b.Sums.LifePath)
	assert.Equal(t, 11, b.LifePath)
	assert.Equal(t, 34, b.PinnacleStages[0].EndAge)
	assert.Contains(t, b.Pinnacles, "Primer Pináculo (Nacimiento - 34 años)")
}

func TestDeriveIsDeterministic(t *testing.T) {
	a, err := Derive("María Fernanda López", "1978-11-29")
	require.NoError(t, err)
	b, err := Derive("María Fernanda López", "1978-11-29")
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDeriveRejectsBadInput(t *testing.T) {
	badDates := []string{"1990-13-45", "not-a-date", "1990-02-30", "1990-5-15", " 1990-05-15", "", "0000-01-01", "1990/05/15"}
	for _, dob := range badDates {
		_, err := Derive("Ana", dob)
		require.Errorf(t, err, "dob %q", dob)
		require.True(t, IsValidationError(err), dob)
	}

	for _, name := range []string{"", "   ", "123 !!", "Éé"} {
		_, err := Derive(name, "1990-05-15")
		require.Error(t, err)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "fullName", verr.Field)
	}

	_, err := Derive("Ana", "2000-02-29")
	require.NoError(t, err)
}

func TestStageLabels(t *testing.T) {
	assert.Equal(t, "Primer Pináculo", PinnacleLabel(0))
	assert.Equal(t, "Cuarto Desafío", ChallengeLabel(3))
	assert.Equal(t, "desde los 54 años", Stage{StartAge: 54, OpenEnded: true}.Range())
}
