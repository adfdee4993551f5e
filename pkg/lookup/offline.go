package lookup

import "strings"

var offlinePlaces = []SearchResult{
	{Name: "MERCADO CENTRAL BH", Lat: -19.9230, Lng: -43.9444, Type: "MERCADO"},
	{Name: "PRAÇA DA LIBERDADE", Lat: -19.9322, Lng: -43.9378, Type: "PRAÇA"},
	{Name: "ESTÁDIO MINEIRÃO", Lat: -19.8659, Lng: -43.9710, Type: "ESTÁDIO"},
	{Name: "IGREJINHA DA PAMPULHA", Lat: -19.8585, Lng: -43.9791, Type: "TURISMO"},
	{Name: "SAVASSI", Lat: -19.9388, Lng: -43.9326, Type: "CENTRO COMERCIAL"},
	{Name: "HOSPITAL JOÃO XXIII", Lat: -19.9247, Lng: -43.9351, Type: "HOSPITAL"},
	{Name: "OURO PRETO - CENTRO", Lat: -20.3855, Lng: -43.5035, Type: "HISTÓRICO"},
	{Name: "TIRADENTES - MATRIZ", Lat: -21.1105, Lng: -44.1775, Type: "HISTÓRICO"},
	{Name: "CAPITÓLIO - CANYONS", Lat: -20.6214, Lng: -46.2847, Type: "NATUREZA"},
	{Name: "UBERLÂNDIA - CENTER SHOPPING", Lat: -18.9132, Lng: -48.2622, Type: "SHOPPING"},
}

// OfflineTable returns a copy of the bundled places.
func OfflineTable() []SearchResult {
	out := make([]SearchResult, len(offlinePlaces))
	copy(out, offlinePlaces)
	return out
}

// MatchMode selects which fields an offline filter inspects.
type MatchMode int

const (
	// MatchNameOrType is used when the user chose offline mode.
	MatchNameOrType MatchMode = iota
	// MatchName is used when an online tier failed.
	MatchName
)

// FilterOffline returns the places containing q, case-insensitively, in
// table order.
func FilterOffline(places []SearchResult, q string, mode MatchMode) []SearchResult {
	needle := strings.ToLower(q)
	var out []SearchResult
	for _, p := range places {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
			continue
		}
		if mode == MatchNameOrType && strings.Contains(strings.ToLower(p.Type), needle) {
			out = append(out, p)
		}
	}
	return out
}
