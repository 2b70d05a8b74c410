package crawler

import (
	"strings"

	"cartilla/internal/model"
)

// Placeholders written when the API leaves a field out.
const (
	NoName         = "Nombre no disponible"
	NoAddress      = "Dirección no disponible"
	NoEmail        = "Email no disponible"
	NoPhone        = "Teléfono no disponible"
	NoLocality     = "Localidad no disponible"
	NoProvince     = "Provincia no disponible"
	NoLatitude     = "Latitud no disponible"
	NoLongitude    = "Longitud no disponible"
	NoNeighborhood = "Barrio no disponible"
)

// ExpandRows flattens providers into one row per office. A provider with
// no offices still yields a single row, with every office field set to
// its placeholder.
func ExpandRows(providers []Provider, plan model.Plan, specialty model.Specialty) []model.Row {
	var rows []model.Row
	for _, p := range providers {
		name := p.Nombre.or(NoName)

		if len(p.Consultorios) == 0 {
			rows = append(rows, model.Row{
				Identity:  placeholderOffice(name),
				Plan:      plan.Slug(),
				Specialty: specialty.Label,
			})
			continue
		}

		for _, o := range p.Consultorios {
			rows = append(rows, model.Row{
				Identity:  officeIdentity(name, o),
				Plan:      plan.Slug(),
				Specialty: specialty.Label,
			})
		}
	}
	return rows
}

func officeIdentity(name string, o Office) model.Identity {
	lat, lon := NoLatitude, NoLongitude
	if g := o.Geolocalizacion; g != nil {
		lat = g.Latitud.or(NoLatitude)
		lon = g.Longitud.or(NoLongitude)
	}
	return model.Identity{
		Name:         name,
		Address:      o.Direccion.or(NoAddress),
		Email:        strings.TrimSpace(o.Email.or(NoEmail)),
		Phone:        o.Telefono.or(NoPhone),
		Locality:     o.Localidad.or(NoLocality),
		Province:     o.Provincia.or(NoProvince),
		Latitude:     lat,
		Longitude:    lon,
		Neighborhood: o.Barrio.or(NoNeighborhood),
	}
}

func placeholderOffice(name string) model.Identity {
	return model.Identity{
		Name:         name,
		Address:      NoAddress,
		Email:        NoEmail,
		Phone:        NoPhone,
		Locality:     NoLocality,
		Province:     NoProvince,
		Latitude:     NoLatitude,
		Longitude:    NoLongitude,
		Neighborhood: NoNeighborhood,
	}
}
