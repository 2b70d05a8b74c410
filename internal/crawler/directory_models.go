package crawler

import (
	"bytes"
	"encoding/json"
)

// Text accepts a JSON string or a bare number/bool and keeps the literal
// text, so ids and coordinates survive exactly as the API sent them.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	*t = Text(data)
	return nil
}

// or returns the text, or fallback when the field was absent or null.
func (t *Text) or(fallback string) string {
	if t == nil {
		return fallback
	}
	return string(*t)
}

type PlanDTO struct {
	ID     Text `json:"id"`
	Nombre Text `json:"nombre"`
}

type ProvinceDTO struct {
	ID     Text `json:"id"`
	Nombre Text `json:"nombre"`
	Tipo   Text `json:"tipo"`
}

// ProvidersResponse is the provider endpoint payload.
type ProvidersResponse struct {
	ListaPrestador []Provider `json:"ListaPrestador"`
}

type Provider struct {
	Nombre       *Text    `json:"nombre"`
	Consultorios []Office `json:"consultorios"`
}

// Office is one practice location (consultorio) of a provider.
type Office struct {
	Direccion       *Text        `json:"direccion"`
	Email           *Text        `json:"email"`
	Telefono        *Text        `json:"telefono"`
	Localidad       *Text        `json:"localidad"`
	Provincia       *Text        `json:"provincia"`
	Geolocalizacion *Geolocation `json:"geolocalizacion"`
	Barrio          *Text        `json:"barrio"`
}

type Geolocation struct {
	Latitud  *Text `json:"latitud"`
	Longitud *Text `json:"longitud"`
}
