package catalog

import "github.com/alfredjeanlab/muster/internal/model"

var builtin = []model.RoleTemplate{
	{Name: "PvE_Blue_Chest", Roles: []string{"Tank", "Healer", "M-DPS", "R-DPS", "DPS1", "DPS2", "DPS3"}},
	{Name: "PvE_Golden_Chest", Roles: []string{"Tank", "Healer", "Ironroot", "Shadowcaller", "Blazing", "Perma", "BadonBow"}},
	{Name: "Tracking_5P", Roles: []string{"Tank", "Healer", "R-DPS", "M-DPS", "DPS"}},
	{Name: "Tracking_7P", Roles: []string{"Tank", "Healer", "R-DPS", "M-DPS", "DPS1", "DPS2", "DPS3"}},
	{Name: "PVP_Small_Scall", Roles: []string{"D-Tank", "O-Tank", "Healer", "Catcher-DPS", "DPS1", "DPS2", "DPS3"}},
	{Name: "Gathering Session", Roles: []string{"Gatherer1", "Gatherer2", "Gatherer3"}},
	{Name: "Solo", Roles: []string{"solo"}},
}
