package importer

import (
	"strings"

	"github.com/cleared-dev/ledgerkit/internal/categories"
)

// vocabulary maps folded institution category labels to canonical category
// keys.
type vocabulary map[string]string

// translate maps an institution's category pair to a canonical key. The
// sub-category wins over the category; unmapped labels give "".
func (v vocabulary) translate(category, subcategory string) string {
	if key, ok := v[fold(subcategory)]; ok {
		return key
	}
	if key, ok := v[fold(category)]; ok {
		return key
	}
	return ""
}

// prefixVocabulary maps by leading words, for operation-type columns that
// carry free text after the operation keyword ("ACHAT COMPTANT", "TAXE TTF").
type prefixVocabulary []struct {
	prefix string
	key    string
}

func (v prefixVocabulary) translate(label string) string {
	f := fold(label)
	for _, e := range v {
		if f == e.prefix || strings.HasPrefix(f, e.prefix+" ") {
			return e.key
		}
	}
	return ""
}

var creditMutuelVocab = vocabulary{
	"alimentation":           categories.Groceries,
	"supermarche":            categories.Groceries,
	"hypermarche":            categories.Groceries,
	"boulangerie":            categories.Groceries,
	"restaurants":            categories.Dining,
	"restauration":           categories.Dining,
	"bars et restaurants":    categories.Dining,
	"transports":             categories.Transport,
	"transport":              categories.Transport,
	"peage":                  categories.Transport,
	"parking":                categories.Transport,
	"carburant":              categories.Fuel,
	"logement":               categories.Housing,
	"loyer":                  categories.Rent,
	"energie":                categories.Utilities,
	"electricite":            categories.Utilities,
	"eau":                    categories.Utilities,
	"telecommunications":     categories.Telecom,
	"telephone":              categories.Telecom,
	"internet":               categories.Telecom,
	"sante":                  categories.Health,
	"pharmacie":              categories.Health,
	"medecin":                categories.Health,
	"assurances":             categories.Insurance,
	"assurance":              categories.Insurance,
	"shopping":               categories.Shopping,
	"habillement":            categories.Shopping,
	"loisirs":                categories.Leisure,
	"sorties":                categories.Leisure,
	"voyages":                categories.Travel,
	"hotel":                  categories.Travel,
	"abonnements":            categories.Subscriptions,
	"streaming":              categories.Subscriptions,
	"education":              categories.Education,
	"impots et taxes":        categories.Taxes,
	"impots":                 categories.Taxes,
	"frais bancaires":        categories.BankFees,
	"cotisations bancaires":  categories.BankFees,
	"retraits":               categories.Cash,
	"retrait especes":        categories.Cash,
	"salaires":               categories.Salary,
	"salaire":                categories.Salary,
	"revenus fonciers":       categories.RentalIncome,
	"remboursements":         categories.Refunds,
	"autres revenus":         categories.OtherIncome,
	"epargne":                categories.Investment,
	"placements":             categories.Investment,
	"virements internes":     categories.Transfer,
	"operations exclues":     categories.Transfer,
}

var boursoramaVocab = vocabulary{
	"alimentation":                          categories.Groceries,
	"supermarche / epicerie":                categories.Groceries,
	"restaurants, bars, discotheques...":    categories.Dining,
	"restaurants":                           categories.Dining,
	"auto & moto":                           categories.Transport,
	"transports quotidiens (metro, bus...)": categories.Transport,
	"peage":                                 categories.Transport,
	"carburant":                             categories.Fuel,
	"logement":                              categories.Housing,
	"loyer":                                 categories.Rent,
	"electricite":                           categories.Utilities,
	"eau":                                   categories.Utilities,
	"telephone / internet":                  categories.Telecom,
	"sante":                                 categories.Health,
	"pharmacie":                             categories.Health,
	"assurance":                             categories.Insurance,
	"achats & shopping":                     categories.Shopping,
	"vetements":                             categories.Shopping,
	"loisirs & sorties":                     categories.Leisure,
	"voyages":                               categories.Travel,
	"abonnements":                           categories.Subscriptions,
	"enseignement":                          categories.Education,
	"impots & taxes":                        categories.Taxes,
	"frais bancaires":                       categories.BankFees,
	"retraits cash":                         categories.Cash,
	"salaires et revenus d'activite":        categories.Salary,
	"salaires":                              categories.Salary,
	"remboursements":                        categories.Refunds,
	"autres revenus":                        categories.OtherIncome,
	"epargne":                               categories.Investment,
	"mouvements internes":                   categories.Transfer,
	"virements recus de comptes a comptes":  categories.Transfer,
	"virements emis de comptes a comptes":   categories.Transfer,
}

var bourseDirectVocab = prefixVocabulary{
	{"virement interne", categories.Transfer},
	{"dividende", categories.Dividends},
	{"coupon", categories.Dividends},
	{"achat", categories.Investment},
	{"vente", categories.Investment},
	{"souscription", categories.Investment},
	{"frais", categories.BankFees},
	{"courtage", categories.BankFees},
	{"droits de garde", categories.BankFees},
	{"taxe", categories.Taxes},
	{"prelevements sociaux", categories.Taxes},
}
