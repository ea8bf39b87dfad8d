package backend

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/example/ec-storefront/internal/readmodel"
)

// CartService maps the backend cart endpoints
type CartService struct {
	client *Client
}

func NewCartService(c *Client) *CartService {
	return &CartService{client: c}
}

type addItemRequest struct {
	UserID    string `json:"userId"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*readmodel.Cart, error) {
	var cart readmodel.Cart
	if err := s.client.Get(ctx, "Cart/GetCart/"+url.PathEscape(userID), &cart); err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []readmodel.CartItem{}
	}
	return &cart, nil
}

func (s *CartService) AddItem(ctx context.Context, userID string, productID int64, quantity int) error {
	return s.client.Post(ctx, "Cart/AddItemToCart", addItemRequest{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}, nil)
}

func (s *CartService) RemoveItem(ctx context.Context, itemID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("Cart/RemoveCartItem/%d", itemID), nil)
}

func (s *CartService) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	return s.client.Put(ctx, fmt.Sprintf("Cart/UpdateCartItemQuantity/%d", itemID), quantityRequest{Quantity: quantity}, nil)
}

func (s *CartService) Checkout(ctx context.Context, userID string) error {
	return s.client.Post(ctx, "Cart/Checkout/"+url.PathEscape(userID), nil, nil)
}

// AuthService maps the backend login endpoint
type AuthService struct {
	client *Client
}

func NewAuthService(c *Client) *AuthService {
	return &AuthService{client: c}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Token    string         `json:"token"`
	IDRole   readmodel.Role `json:"idRole"`
	FullName string         `json:"fullName,omitempty"`
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse
	if err := s.client.Post(ctx, "Auth/Login", LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UserService maps the backend user endpoints
type UserService struct {
	client *Client
}

func NewUserService(c *Client) *UserService {
	return &UserService{client: c}
}

func (s *UserService) Create(ctx context.Context, in readmodel.UserInput) error {
	return s.client.Post(ctx, "User/CreateUser", in, nil)
}

func (s *UserService) Update(ctx context.Context, in readmodel.UserInput) error {
	return s.client.Put(ctx, "user/UpdateUser", in, nil)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*readmodel.User, error) {
	var u readmodel.User
	if err := s.client.Get(ctx, "user/GetUserById/"+url.PathEscape(id), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserService) List(ctx context.Context) ([]readmodel.User, error) {
	users := []readmodel.User{}
	if err := s.client.Get(ctx, "user/GetAll", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserService) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.client.Get(ctx, "user/GetUsersCount", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// FindByEmail scans the user list; the backend has no lookup by e-mail.
// Returns a 404 APIError when nobody matches.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*readmodel.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, &APIError{Status: 404, Message: "user not found"}
}

type resetPasswordRequest struct {
	ID          string `json:"Id"`
	NewPassword string `json:"newPassword"`
}

func (s *UserService) ResetPassword(ctx context.Context, userID, newPassword string) error {
	return s.client.Put(ctx, "User/UpdatePass", resetPasswordRequest{ID: userID, NewPassword: newPassword}, nil)
}

// ProductService maps the backend catalog endpoints
type ProductService struct {
	client *Client
}

func NewProductService(c *Client) *ProductService {
	return &ProductService{client: c}
}

func (s *ProductService) List(ctx context.Context) ([]readmodel.Product, error) {
	products := []readmodel.Product{}
	if err := s.client.Get(ctx, "products", &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*readmodel.Product, error) {
	var p readmodel.Product
	if err := s.client.Get(ctx, fmt.Sprintf("products/%d", id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ProductService) Create(ctx context.Context, p readmodel.Product) (*readmodel.Product, error) {
	var created readmodel.Product
	if err := s.client.Post(ctx, "products", p, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, p readmodel.Product) error {
	return s.client.Put(ctx, fmt.Sprintf("products/%d", id), p, nil)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("products/%d", id), nil)
}

func (s *ProductService) Categories(ctx context.Context) ([]readmodel.Category, error) {
	categories := []readmodel.Category{}
	if err := s.client.Get(ctx, "Products/GetCategories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *ProductService) UploadImage(ctx context.Context, productID int64, filename string, content io.Reader) (*readmodel.ProductImage, error) {
	var img readmodel.ProductImage
	if err := s.client.Upload(ctx, fmt.Sprintf("products/%d/images", productID), "file", filename, content, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

func (s *ProductService) DeleteImage(ctx context.Context, imageID int64) error {
	return s.client.Delete(ctx, fmt.Sprintf("products/images/%d", imageID), nil)
}

// OrderService maps the backend order endpoints
type OrderService struct {
	client *Client
}

func NewOrderService(c *Client) *OrderService {
	return &OrderService{client: c}
}

func (s *OrderService) ListByUser(ctx context.Context, userID string) ([]readmodel.Order, error) {
	orders := []readmodel.Order{}
	if err := s.client.Get(ctx, "Order/GetOrdersByUser/"+url.PathEscape(userID), &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *OrderService) List(ctx context.Context) ([]readmodel.Order, error) {
	orders := []readmodel.Order{}
	if err := s.client.Get(ctx, "Order/GetOrders", &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

type statusRequest struct {
	Status readmodel.OrderStatus `json:"status"`
}

func (s *OrderService) UpdateStatus(ctx context.Context, orderID int64, status readmodel.OrderStatus) error {
	return s.client.Put(ctx, fmt.Sprintf("Order/UpdateOrderStatus/%d", orderID), statusRequest{Status: status}, nil)
}
