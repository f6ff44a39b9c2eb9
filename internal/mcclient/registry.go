package mcclient

import (
	"github.com/Tnze/go-mc/data/entity"
	"github.com/Tnze/go-mc/data/item"
)

// реестры протокола 764 (1.20.2) берём из данных go-mc

func entityTypeName(id int32) string {
	if id < 0 {
		return ""
	}
	if e, ok := entity.ByID[entity.ID(id)]; ok {
		return e.Name
	}
	return ""
}

func itemName(id int32) string {
	if id < 0 {
		return ""
	}
	if it, ok := item.ByID[item.ID(id)]; ok {
		return it.Name
	}
	return ""
}
