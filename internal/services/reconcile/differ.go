package reconcile

import "github.com/ecommerce-omar/tracking-api/internal/models"

// HasNewEvents сообщает, есть ли в свежем ответе перевозчика события,
// которых не было в сохранённом списке. Порядок событий не учитывается.
func HasNewEvents(old, fresh []models.TrackingEvent) bool {
	if len(old) != len(fresh) {
		return true
	}
	seen := make(map[string]struct{}, len(old))
	for _, e := range old {
		seen[e.Signature()] = struct{}{}
	}
	for _, e := range fresh {
		if _, ok := seen[e.Signature()]; !ok {
			return true
		}
	}
	return false
}
