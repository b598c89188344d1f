package normalize

import (
	"strings"

	"github.com/amishk599/agregador/internal/model"
)

// DefaultContractType is used when no keyword matches.
const DefaultContractType = model.ContractFullTime

type contractRule struct {
	keywords  []string // folded
	canonical string
}

// Order matters: the first rule with a matching keyword wins.
var contractRules = []contractRule{
	{keywords: []string{"integral", "inteiro", "full"}, canonical: model.ContractFullTime},
	{keywords: []string{"parcial", "part-time", "part time", "meio"}, canonical: model.ContractPartTime},
	{keywords: []string{"estagio", "internship", "trainee"}, canonical: model.ContractInternship},
	{keywords: []string{"freelance", "freelancer", "autonomo"}, canonical: model.ContractFreelance},
	{keywords: []string{"temporario", "temporary", "contrato", "contract"}, canonical: model.ContractTemporary},
	{keywords: []string{"remoto", "remote"}, canonical: model.ContractRemote},
}

// ContractType maps free-text input to a canonical contract type by keyword
// containment (case- and accent-insensitive).
func ContractType(raw string) string {
	folded := Fold(raw)
	if folded == "" {
		return DefaultContractType
	}
	for _, rule := range contractRules {
		for _, kw := range rule.keywords {
			if strings.Contains(folded, kw) {
				return rule.canonical
			}
		}
	}
	return DefaultContractType
}
