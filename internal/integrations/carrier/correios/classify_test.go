package correios

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ecommerce-omar/tracking-api/internal/models"
)

func TestClassifyDescription(t *testing.T) {
	cases := []struct {
		desc string
		want models.Status
	}{
		{"Objeto entregue ao destinatário", models.StatusDeliveredToRecipient},
		{"Objeto não entregue - prazo de retirada encerrado", models.StatusPickupWindowExpired},
		{"Objeto não entregue - carteiro não atendido", models.StatusNotDelivered},
		{"Objeto não entregue ao destinatário", models.StatusNotDelivered},
		{"Objeto entregue no armário inteligente", models.StatusDeliveredToSmartLocker},
		{"Objeto saiu para entrega ao destinatário", models.StatusOutForDelivery},
		{"Carteiro saiu para coleta do objeto", models.StatusCourierDepartedForPickup},
		{"Correção de rota", models.StatusRouteCorrection},
		{"Informação corrigida", models.StatusCarrierCorrection},
		{"Favor desconsiderar a informação anterior", models.StatusDisregardPrevious},
		{"Objeto em transferência - por favor aguarde", models.StatusInTransit},
		{"Objeto em trânsito - por favor aguarde", models.StatusInTransit},
		{"Objeto encaminhado", models.StatusInTransit},
		{"Objeto postado", models.StatusPosted},
		{"Objeto postado após o horário limite da unidade", models.StatusPosted},
		{"Objeto recebido na unidade de distribuição", models.StatusArrivedAtUnit},
		{"Objeto ainda não chegou à unidade", models.StatusNotYetArrived},
		{"Objeto aguardando retirada no endereço indicado", models.StatusAwaitingPickup},
		{"Etiqueta emitida", models.StatusLabelIssued},
		{"Etiqueta expirada", models.StatusLabelExpired},
		{"Objeto devolvido ao remetente", models.StatusReturnedToSender},
		{"Objeto entregue ao remetente", models.StatusReturnedToSender},
		{"Objeto em devolução ao remetente", models.StatusReturningToSender},
		{"Objeto cancelado pelo remetente", models.StatusCancelled},
		{"Reentrega solicitada pelo remetente", models.StatusSenderRedelivery},
		{"Destinatário recusou a retirada do objeto", models.StatusRecipientDeclinedPickup},
		{"Retirada suspensa a pedido do destinatário", models.StatusRecipientDeclinedPickup},
		{"Objeto não encontrado na base de dados", models.StatusNotFound},
		{"  OBJETO ENTREGUE   AO DESTINATARIO ", models.StatusDeliveredToRecipient},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := ClassifyDescription(tc.desc)
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyDescription_UnmatchedFallsBackToInTransit(t *testing.T) {
	got, ok := ClassifyDescription("Fiscalização aduaneira finalizada")
	require.False(t, ok)
	require.Equal(t, models.StatusInTransit, got)

	got, ok = ClassifyDescription("")
	require.False(t, ok)
	require.Equal(t, models.StatusInTransit, got)
}

func TestStatusRules_OnlyKnownStatuses(t *testing.T) {
	for _, r := range statusRules {
		require.True(t, r.status.Valid(), r.status)
		require.NotEqual(t, models.StatusLookupError, r.status)
	}
}

func TestFold(t *testing.T) {
	require.Equal(t, "objeto nao entregue - prazo", fold("Objeto  NÃO entregue -\tprazo"))
	require.Equal(t, "correcao de rota", fold("Correção de Rota"))
}
