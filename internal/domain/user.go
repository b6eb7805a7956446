package domain

import "github.com/shopspring/decimal"

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DashboardStats struct {
	TotalOrders   int             `json:"totalOrders"`
	TotalProducts int             `json:"totalProducts"`
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	RecentOrders  []Order         `json:"recentOrders"`
}
