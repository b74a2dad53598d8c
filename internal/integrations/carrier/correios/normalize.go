package correios

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ecommerce-omar/tracking-api/internal/integrations/carrier"
	"github.com/ecommerce-omar/tracking-api/internal/models"
)

type rastroResponse struct {
	Objetos []rastroObjeto `json:"objetos"`
}

type rastroObjeto struct {
	CodObjeto  string         `json:"codObjeto"`
	Mensagem   string         `json:"mensagem,omitempty"`
	DtPrevista string         `json:"dtPrevista,omitempty"`
	Eventos    []rastroEvento `json:"eventos"`
}

type rastroEvento struct {
	Codigo         string         `json:"codigo"`
	Tipo           string         `json:"tipo"`
	DtHrCriado     string         `json:"dtHrCriado"`
	Descricao      string         `json:"descricao"`
	Detalhe        string         `json:"detalhe,omitempty"`
	Unidade        *rastroUnidade `json:"unidade,omitempty"`
	UnidadeDestino *rastroUnidade `json:"unidadeDestino,omitempty"`
}

type rastroUnidade struct {
	Tipo     string          `json:"tipo"`
	Endereco *rastroEndereco `json:"endereco,omitempty"`
}

type rastroEndereco struct {
	Logradouro string `json:"logradouro,omitempty"`
	Numero     string `json:"numero,omitempty"`
	Bairro     string `json:"bairro,omitempty"`
	Cidade     string `json:"cidade,omitempty"`
	UF         string `json:"uf,omitempty"`
	CEP        string `json:"cep,omitempty"`
}

const notFoundDescription = "Objeto não encontrado na base de dados"

// Carrier timestamps come without an offset, in Brasília time.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

func carrierLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

func (c *Client) normalize(trackingCode string, rb *rastroResponse) carrier.TrackingResult {
	if rb == nil || len(rb.Objetos) == 0 || objectMissing(rb.Objetos[0]) {
		desc := notFoundDescription
		if rb != nil && len(rb.Objetos) > 0 && rb.Objetos[0].Mensagem != "" {
			desc = rb.Objetos[0].Mensagem
		}
		// Нулевое время: повторный not-found совпадает с сохранённым.
		return carrier.TrackingResult{
			Status: models.StatusNotFound,
			Events: []models.TrackingEvent{{
				Description: desc,
				OccurredAt:  time.Time{},
			}},
		}
	}

	obj := rb.Objetos[0]
	res := carrier.TrackingResult{
		ExpectedDelivery: c.parseTime(obj.DtPrevista),
	}
	if len(obj.Eventos) == 0 {
		res.Status = models.StatusLabelIssued
		res.Events = []models.TrackingEvent{}
		return res
	}

	events := make([]models.TrackingEvent, 0, len(obj.Eventos))
	for _, e := range obj.Eventos {
		events = append(events, c.toEvent(e))
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})
	res.Events = events

	status, ok := ClassifyDescription(events[0].Description)
	if !ok {
		c.logger.Warn("unmatched carrier event description",
			slog.String("tracking_code", trackingCode),
			slog.String("description", events[0].Description),
			slog.String("fallback_status", string(status)),
		)
	}
	res.Status = status
	return res
}

func objectMissing(o rastroObjeto) bool {
	if len(o.Eventos) > 0 {
		return false
	}
	m := fold(o.Mensagem)
	return strings.Contains(m, "nao encontrado") || strings.HasPrefix(m, "sro-020")
}

func (c *Client) toEvent(e rastroEvento) models.TrackingEvent {
	ev := models.TrackingEvent{
		Description: strings.TrimSpace(e.Descricao),
		Detail:      strPtr(strings.TrimSpace(e.Detalhe)),
	}
	if t := c.parseTime(e.DtHrCriado); t != nil {
		ev.OccurredAt = *t
	} else {
		c.logger.Warn("unparsable carrier event time",
			slog.String("dt_hr_criado", e.DtHrCriado),
			slog.String("description", ev.Description),
		)
	}
	if e.Unidade != nil {
		ev.UnitType = strPtr(strings.TrimSpace(e.Unidade.Tipo))
		ev.Location = unitPlace(e.Unidade)
		ev.Origin = unitDescriptor(e.Unidade)
		ev.Address = postalAddress(e.Unidade.Endereco)
	}
	if e.UnidadeDestino != nil {
		ev.Destination = unitDescriptor(e.UnidadeDestino)
	}
	return ev
}

// unitPlace composes "City - UF", falling back to whichever part is present.
func unitPlace(u *rastroUnidade) string {
	if u == nil || u.Endereco == nil {
		return ""
	}
	city := strings.TrimSpace(u.Endereco.Cidade)
	uf := strings.TrimSpace(u.Endereco.UF)
	switch {
	case city != "" && uf != "":
		return city + " - " + uf
	case city != "":
		return city
	default:
		return uf
	}
}

func unitDescriptor(u *rastroUnidade) *string {
	typ := strings.TrimSpace(u.Tipo)
	place := unitPlace(u)
	switch {
	case typ != "" && place != "":
		return strPtr(typ + ", " + place)
	case typ != "":
		return strPtr(typ)
	default:
		return strPtr(place)
	}
}

func postalAddress(e *rastroEndereco) *models.PostalAddress {
	if e == nil {
		return nil
	}
	a := models.PostalAddress{
		Street:       strings.TrimSpace(e.Logradouro),
		Number:       strings.TrimSpace(e.Numero),
		Neighborhood: strings.TrimSpace(e.Bairro),
		City:         strings.TrimSpace(e.Cidade),
		State:        strings.TrimSpace(e.UF),
		PostalCode:   strings.TrimSpace(e.CEP),
	}
	if a == (models.PostalAddress{}) {
		return nil
	}
	return &a
}

func (c *Client) parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, c.loc); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
