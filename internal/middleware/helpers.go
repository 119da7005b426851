// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetBusinessID gets the authenticated business ID from context
func GetBusinessID(c *gin.Context) (int64, bool) {
	businessID, exists := c.Get("business_id")
	if !exists {
		return 0, false
	}

	id, ok := businessID.(int64)
	if !ok {
		return 0, false
	}

	return id, true
}

// MustGetBusinessID gets the business ID from context or panics
func MustGetBusinessID(c *gin.Context) int64 {
	businessID, exists := GetBusinessID(c)
	if !exists {
		panic("business_id not found in context")
	}
	return businessID
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get("roles")
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// HasRole checks if the authenticated user carries the given role
func HasRole(c *gin.Context, role string) bool {
	for _, r := range GetRoles(c) {
		if r == role {
			return true
		}
	}
	return false
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get("business_id")
	return exists
}

// IsAdmin checks if user is an admin
func IsAdmin(c *gin.Context) bool {
	return HasRole(c, "admin") || HasRole(c, "super_admin")
}
