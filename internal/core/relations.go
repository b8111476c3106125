package core

var motherLabels = map[ParentRelation]string{
	RelationGood:        "Buena",
	RelationBad:         "Mala",
	RelationComplicated: "Complicada",
	RelationDeceased:    "Fallecida",
	RelationUnknown:     "No conocida",
	RelationAbsent:      "Ausente",
	RelationDistanced:   "Distanciada",
	RelationAvoiding:    "Evitándola",
	RelationImprisoned:  "Reclusa de libertad",
}

var fatherLabels = map[ParentRelation]string{
	RelationGood:        "Buena",
	RelationBad:         "Mala",
	RelationComplicated: "Complicada",
	RelationDeceased:    "Fallecido",
	RelationUnknown:     "No conocido",
	RelationAbsent:      "Ausente",
	RelationDistanced:   "Distanciado",
	RelationAvoiding:    "Evitándolo",
	RelationImprisoned:  "Recluso de libertad",
}

// ParentRelations lists every accepted relation in display order.
var ParentRelations = []ParentRelation{
	RelationGood,
	RelationBad,
	RelationComplicated,
	RelationDeceased,
	RelationUnknown,
	RelationAbsent,
	RelationDistanced,
	RelationAvoiding,
	RelationImprisoned,
}

// Valid reports whether r is a known relation.
func (r ParentRelation) Valid() bool {
	_, ok := motherLabels[r]
	return ok
}

// MotherLabel returns the Spanish wording for the relation with the mother.
// Unknown values are returned unchanged.
func (r ParentRelation) MotherLabel() string {
	if label, ok := motherLabels[r]; ok {
		return label
	}
	return string(r)
}

// FatherLabel returns the Spanish wording for the relation with the father.
func (r ParentRelation) FatherLabel() string {
	if label, ok := fatherLabels[r]; ok {
		return label
	}
	return string(r)
}
