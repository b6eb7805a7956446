package backend

import (
	"context"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

func (c *Client) Login(ctx context.Context, email, password string) (domain.User, error) {
	var resp userResponse
	err := c.do(ctx, call{
		op:     "user login",
		method: http.MethodPost,
		path:   "/user/login",
		body:   credentials{Email: email, Password: password},
	}, &resp)
	return resp.User, err
}

func (c *Client) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	var resp userResponse
	err := c.do(ctx, call{
		op:     "user register",
		method: http.MethodPost,
		path:   "/user/register",
		body:   credentials{Name: name, Email: email, Password: password},
	}, &resp)
	return resp.User, err
}

// IsAuth returns the user bound to the current session or ErrAuthRequired.
func (c *Client) IsAuth(ctx context.Context) (domain.User, error) {
	var resp userResponse
	err := c.do(ctx, call{op: "user is-auth", method: http.MethodGet, path: "/user/is-auth"}, &resp)
	return resp.User, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{op: "user logout", method: http.MethodGet, path: "/user/logout"}, nil)
}

func (c *Client) SellerLogin(ctx context.Context, email, password string) error {
	return c.do(ctx, call{
		op:     "seller login",
		method: http.MethodPost,
		path:   "/seller/login",
		body:   credentials{Email: email, Password: password},
	}, nil)
}

func (c *Client) SellerIsAuth(ctx context.Context) error {
	return c.do(ctx, call{op: "seller is-auth", method: http.MethodGet, path: "/seller/is-auth"}, nil)
}

func (c *Client) SellerLogout(ctx context.Context) error {
	return c.do(ctx, call{op: "seller logout", method: http.MethodGet, path: "/seller/logout"}, nil)
}

func (c *Client) SellerDashboard(ctx context.Context) (domain.DashboardStats, error) {
	var resp dashboardResponse
	err := c.do(ctx, call{op: "seller dashboard", method: http.MethodGet, path: "/seller/dashboard"}, &resp)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return domain.DashboardStats{
		TotalOrders:   resp.Stats.TotalOrders,
		TotalProducts: resp.Stats.TotalProducts,
		TotalRevenue:  resp.Stats.TotalRevenue,
		RecentOrders:  toOrders(resp.Stats.RecentOrders),
	}, nil
}
