package correios

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

type statusRule struct {
	status models.Status
	match  func(folded string) bool
}

func anyOf(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

func allOf(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if !strings.Contains(s, sub) {
				return false
			}
		}
		return true
	}
}

func both(a, b func(string) bool) func(string) bool {
	return func(s string) bool { return a(s) && b(s) }
}

// statusRules is evaluated top to bottom, first match wins. Order goes from the
// most specific wording to the most generic: "nao entregue - prazo de retirada"
// before "nao entregue", "correcao de rota" before any correction or transit text.
// Descriptions are matched lower-cased and without diacritics.
var statusRules = []statusRule{
	{models.StatusNotFound, anyOf("nao encontrado")},
	{models.StatusDisregardPrevious, anyOf("desconsiderar")},
	{models.StatusRouteCorrection, anyOf("correcao de rota")},
	{models.StatusCarrierCorrection, anyOf("informacao corrigida", "informacoes corrigidas", "correcao de informac", "dados corrigidos")},
	{models.StatusLabelExpired, allOf("etiqueta", "expirad")},
	{models.StatusLabelIssued, anyOf("etiqueta emitida", "aguardando postagem")},
	{models.StatusRecipientDeclinedPickup, both(anyOf("retirada", "coleta"), anyOf("recusad", "recusou", "suspens", "desist"))},
	{models.StatusCancelled, anyOf("cancelad")},
	{models.StatusPickupWindowExpired, anyOf("prazo de retirada encerrado", "prazo de retirada expirado", "prazo de retirada esgotado")},
	{models.StatusSenderRedelivery, allOf("reentrega", "remetente")},
	{models.StatusReturnedToSender, anyOf("devolvido ao remetente", "entregue ao remetente")},
	{models.StatusReturningToSender, anyOf("em devolucao", "devolucao ao remetente", "sera devolvido")},
	{models.StatusNotDelivered, anyOf("nao entregue")},
	{models.StatusDeliveredToSmartLocker, both(anyOf("entregue"), anyOf("armario inteligente", "caixa inteligente", "locker"))},
	{models.StatusDeliveredToRecipient, anyOf("entregue ao destinatario")},
	{models.StatusCourierDepartedForPickup, anyOf("saiu para coleta")},
	{models.StatusOutForDelivery, anyOf("saiu para entrega")},
	{models.StatusAwaitingPickup, anyOf("aguardando retirada", "disponivel para retirada")},
	{models.StatusNotYetArrived, anyOf("ainda nao chegou", "nao chegou a unidade")},
	{models.StatusArrivedAtUnit, anyOf("recebido na unidade", "chegou na unidade")},
	{models.StatusPosted, anyOf("postado")},
	{models.StatusInTransit, anyOf("em transferencia", "em transito", "encaminhado")},
}

// ClassifyDescription maps a carrier event description onto the status set.
// ok is false when no rule matched; the status is then the in-transit fallback.
func ClassifyDescription(description string) (status models.Status, ok bool) {
	folded := fold(description)
	for _, r := range statusRules {
		if r.match(folded) {
			return r.status, true
		}
	}
	return models.StatusInTransit, false
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
