package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astralmap/astralmap/internal/ailink"
	"github.com/astralmap/astralmap/internal/ailink/prompt"
	"github.com/astralmap/astralmap/internal/core"
	"github.com/astralmap/astralmap/internal/numerology"
)

func TestDefaultPromptRendersSubject(t *testing.T) {
	registry, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	service := ailink.NewService(ailink.Config{}, registry)

	subject := core.Subject{
		FullName:       "Ana",
		DOB:            "1990-05-15",
		ParentsStatus:  core.ParentsTogether,
		MotherRelation: core.RelationDeceased,
		FatherRelation: core.RelationAvoiding,
		Upbringing:     "  ",
		Hobbies:        "{{essence}} leer",
	}
	bundle, err := numerology.Derive(subject.FullName, subject.DOB)
	require.NoError(t, err)

	system, user, err := service.Render(DefaultPromptSlug, Variables(subject, bundle))
	require.NoError(t, err)
	assert.Contains(t, system, "Mapa de Autoconocimiento Profundo")

	for _, line := range []string{
		"- **Nombre Completo:** Ana\n",
		"- **Fecha de Nacimiento:** 1990-05-15\n",
		"- **Estado de los Padres:** together\n",
		"- **Relación con la Madre:** Fallecida\n",
		"- **Relación con el Padre:** Evitándolo\n",
		"- **Descripción de la Crianza:** No indicada\n",
		"- **Hijos:** No indicado\n",
		"- **Posición entre Hermanos:** No indicada\n",
		"- **Profesión:** No indicada\n",
		"- **Pasatiempos:** {{essence}} leer\n",
		"**Datos Numerológicos (Calculados):**\n",
		"- **Número de Esencia (Suma de Vocales):** 2\n",
		"- **Número de Imagen (Suma de Consonantes):** 5\n",
		"- **Número de Misión (Suma Total del Nombre):** 7\n",
		"- **Sendero Natal (Suma de Fecha de Nacimiento):** 3\n",
		"- **Karmas (Lecciones Kármicas):** 2, 3, 4, 6, 7, 8, 9\n",
		"- **Deuda Kármica:** Ninguna aparente\n",
		"- **Pináculos (Estaciones de la vida):** Primer Pináculo (Nacimiento - 33 años): Valor 11. " +
			"Segundo Pináculo (34 - 43 años): Valor 7. Tercer Pináculo (44 - 53 años): Valor 9. " +
			"Cuarto Pináculo (desde los 54 años): Valor 6.\n",
		"- **Desafíos (Pruebas del alma):** Primer Desafío (Nacimiento - 33 años): Valor 1. " +
			"Segundo Desafío (34 - 43 años): Valor 5. Tercer Desafío (44 - 53 años): Valor 4. " +
			"Cuarto Desafío (desde los 54 años): Valor 4.\n",
		"Tu Esencia: Número 2, Tu Imagen: Número 5, Tu Misión de Vida: Número 7, Tu Sendero Natal: Número 3",
	} {
		assert.Contains(t, user, line)
	}
	assert.NotContains(t, user, "{{#if")
	assert.NotContains(t, user, "{{full_name}}")
}

func TestDefaultPromptRequiresFigures(t *testing.T) {
	registry, err := prompt.DefaultRegistry()
	require.NoError(t, err)
	service := ailink.NewService(ailink.Config{}, registry)

	subject := validSubject()
	bundle, err := numerology.Derive(subject.FullName, subject.DOB)
	require.NoError(t, err)

	vars := Variables(subject, bundle)
	delete(vars, "pinnacles")
	_, _, err = service.Render(DefaultPromptSlug, vars)
	require.ErrorContains(t, err, "pinnacles")
}
