package crawler

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"cartilla/internal/config"
	"cartilla/internal/model"
)

// Fixed provider query values. Locality 0 matches any locality.
const (
	providersMethod  = "ObtenerParaCartillaMedica"
	categoryID       = "2"
	branchID         = "1"
	attentionModeID  = "2"
	anyLocalityID    = "0"
	endpointPlans    = "plans"
	endpointProvince = "provinces"
	endpointProvider = "providers"
)

// Directory wraps the three cartilla endpoints.
type Directory struct {
	Client       *Client
	PlansURL     string
	ProvincesURL string
	ProvidersURL string
}

func NewDirectory(cfg *config.Config) *Directory {
	return &Directory{
		Client:       NewClient(cfg),
		PlansURL:     cfg.PlansURL,
		ProvincesURL: cfg.ProvincesURL,
		ProvidersURL: cfg.ProvidersURL,
	}
}

// Plans returns every plan, or nil when the endpoint yields no data.
func (d *Directory) Plans(ctx context.Context) ([]model.Plan, Result) {
	res := d.Client.Get(ctx, endpointPlans, d.PlansURL, nil)
	if res.Kind != KindOK {
		return nil, res
	}
	var dtos []PlanDTO
	if err := decodeInto(ctx, res, &dtos); err != nil {
		return nil, degrade(res, err)
	}
	plans := make([]model.Plan, 0, len(dtos))
	for _, p := range dtos {
		plans = append(plans, model.Plan{ID: string(p.ID), Name: string(p.Nombre)})
	}
	return plans, res
}

// Provinces returns every province, or nil when the endpoint yields no data.
func (d *Directory) Provinces(ctx context.Context) ([]model.Province, Result) {
	res := d.Client.Get(ctx, endpointProvince, d.ProvincesURL, nil)
	if res.Kind != KindOK {
		return nil, res
	}
	var dtos []ProvinceDTO
	if err := decodeInto(ctx, res, &dtos); err != nil {
		return nil, degrade(res, err)
	}
	provinces := make([]model.Province, 0, len(dtos))
	for _, p := range dtos {
		provinces = append(provinces, model.Province{ID: string(p.ID), Name: string(p.Nombre), Type: string(p.Tipo)})
	}
	return provinces, res
}

// Providers queries one plan/province/specialty combination.
func (d *Directory) Providers(ctx context.Context, plan model.Plan, province model.Province, specialty model.Specialty) ([]Provider, Result) {
	res := d.Client.Get(ctx, endpointProvider, d.ProvidersURL, ProviderParams(plan, province, specialty))
	if res.Kind != KindOK {
		return nil, res
	}
	var body ProvidersResponse
	if err := decodeInto(ctx, res, &body); err != nil {
		return nil, degrade(res, err)
	}
	if len(body.ListaPrestador) == 0 {
		res.Kind = KindEmpty
	}
	return body.ListaPrestador, res
}

// ProviderParams builds the provider endpoint query for one combination.
func ProviderParams(plan model.Plan, province model.Province, specialty model.Specialty) url.Values {
	return url.Values{
		"metodo":             {providersMethod},
		"rubros":             {categoryID},
		"rubroId":            {categoryID},
		"provinciaId":        {province.ID},
		"provinciaTipo":      {province.Type},
		"provinciaNombre":    {province.Name},
		"localidadId":        {anyLocalityID},
		"localidadNombre":    {""},
		"planId":             {plan.ID},
		"especialidadId":     {specialty.ID},
		"especialidadNombre": {""},
		"filialId":           {branchID},
		"modalidadAtencion":  {attentionModeID},
	}
}

func decodeInto(ctx context.Context, res Result, v any) error {
	if err := json.Unmarshal(res.Payload, v); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("body", string(res.Payload)).Msg("unexpected response shape")
		return errors.Errorf("decoding payload: %w", err)
	}
	return nil
}

// degrade turns a 200 whose JSON has the wrong shape into a permanent
// failure.
func degrade(res Result, err error) Result {
	res.Kind = KindPermanent
	res.Payload = nil
	res.Err = err
	return res
}
