package controllers

import "github.com/industrieschule/vertretungsplan/internal/models"

var allowedRoles = map[string]struct{}{
	models.RoleAdmin:  {},
	models.RoleEditor: {},
	models.RoleViewer: {},
}

func IsValidRole(role string) bool {
	_, ok := allowedRoles[role]
	return ok
}
