package store

import "github.com/amishk599/agregador/internal/model"

// AngolaProvinces seeds provincias_angola.
var AngolaProvinces = []model.Province{
	{ID: "bengo", Name: "Bengo"},
	{ID: "benguela", Name: "Benguela"},
	{ID: "bie", Name: "Bié"},
	{ID: "cabinda", Name: "Cabinda"},
	{ID: "cuando-cubango", Name: "Cuando Cubango"},
	{ID: "cuanza-norte", Name: "Cuanza Norte"},
	{ID: "cuanza-sul", Name: "Cuanza Sul"},
	{ID: "cunene", Name: "Cunene"},
	{ID: "huambo", Name: "Huambo"},
	{ID: "huila", Name: "Huíla"},
	{ID: "luanda", Name: "Luanda"},
	{ID: "lunda-norte", Name: "Lunda Norte"},
	{ID: "lunda-sul", Name: "Lunda Sul"},
	{ID: "malanje", Name: "Malanje"},
	{ID: "moxico", Name: "Moxico"},
	{ID: "namibe", Name: "Namibe"},
	{ID: "uige", Name: "Uíge"},
	{ID: "zaire", Name: "Zaire"},
}
