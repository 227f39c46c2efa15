package apiv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	AccountServiceName  = "splitgen.v1.AccountService"
	BillServiceName     = "splitgen.v1.BillService"
	TemplateServiceName = "splitgen.v1.TemplateService"
)

const (
	AccountServiceRegisterProcedure        = "/" + AccountServiceName + "/Register"
	AccountServiceLoginProcedure           = "/" + AccountServiceName + "/Login"
	AccountServiceLogoutProcedure          = "/" + AccountServiceName + "/Logout"
	AccountServiceGetCurrentUserProcedure  = "/" + AccountServiceName + "/GetCurrentUser"
	AccountServiceGetUsageProcedure        = "/" + AccountServiceName + "/GetUsage"
	AccountServiceGetSubscriptionProcedure = "/" + AccountServiceName + "/GetSubscription"

	BillServiceCreateBillProcedure        = "/" + BillServiceName + "/CreateBill"
	BillServiceGetBillProcedure           = "/" + BillServiceName + "/GetBill"
	BillServiceListBillsProcedure         = "/" + BillServiceName + "/ListBills"
	BillServiceUpdateBillProcedure        = "/" + BillServiceName + "/UpdateBill"
	BillServiceDeleteBillProcedure        = "/" + BillServiceName + "/DeleteBill"
	BillServiceAddParticipantProcedure    = "/" + BillServiceName + "/AddParticipant"
	BillServiceUpdateParticipantProcedure = "/" + BillServiceName + "/UpdateParticipant"
	BillServiceRemoveParticipantProcedure = "/" + BillServiceName + "/RemoveParticipant"
	BillServiceAddProductProcedure        = "/" + BillServiceName + "/AddProduct"
	BillServiceUpdateProductProcedure     = "/" + BillServiceName + "/UpdateProduct"
	BillServiceDeleteProductProcedure     = "/" + BillServiceName + "/DeleteProduct"
	BillServiceSetAllocationsProcedure    = "/" + BillServiceName + "/SetAllocations"
	BillServiceGetBillSummaryProcedure    = "/" + BillServiceName + "/GetBillSummary"

	TemplateServiceCreateTemplateProcedure = "/" + TemplateServiceName + "/CreateTemplate"
	TemplateServiceListTemplatesProcedure  = "/" + TemplateServiceName + "/ListTemplates"
	TemplateServiceDeleteTemplateProcedure = "/" + TemplateServiceName + "/DeleteTemplate"
)

// PublicProcedures can be called without a bearer token.
var PublicProcedures = []string{
	AccountServiceRegisterProcedure,
	AccountServiceLoginProcedure,
	AccountServiceLogoutProcedure,
}

func handle[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func handlerOptions(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func clientOptions(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}

func newClient[Req, Res any](httpClient connect.HTTPClient, baseURL, procedure string, opts []connect.ClientOption) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](httpClient, strings.TrimRight(baseURL, "/")+procedure, opts...)
}

// AccountServiceHandler is implemented by the account service.
type AccountServiceHandler interface {
	Register(context.Context, *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error)
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	Logout(context.Context, *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error)
	GetCurrentUser(context.Context, *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error)
	GetUsage(context.Context, *connect.Request[GetUsageRequest]) (*connect.Response[GetUsageResponse], error)
	GetSubscription(context.Context, *connect.Request[GetSubscriptionRequest]) (*connect.Response[GetSubscriptionResponse], error)
}

// NewAccountServiceHandler returns the path prefix and handler for svc.
func NewAccountServiceHandler(svc AccountServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, AccountServiceRegisterProcedure, svc.Register, opts)
	handle(mux, AccountServiceLoginProcedure, svc.Login, opts)
	handle(mux, AccountServiceLogoutProcedure, svc.Logout, opts)
	handle(mux, AccountServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts)
	handle(mux, AccountServiceGetUsageProcedure, svc.GetUsage, opts)
	handle(mux, AccountServiceGetSubscriptionProcedure, svc.GetSubscription, opts)
	return "/" + AccountServiceName + "/", mux
}

// AccountServiceClient calls AccountService over the Connect protocol.
type AccountServiceClient struct {
	register        *connect.Client[RegisterRequest, RegisterResponse]
	login           *connect.Client[LoginRequest, LoginResponse]
	logout          *connect.Client[LogoutRequest, LogoutResponse]
	getCurrentUser  *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
	getUsage        *connect.Client[GetUsageRequest, GetUsageResponse]
	getSubscription *connect.Client[GetSubscriptionRequest, GetSubscriptionResponse]
}

func NewAccountServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AccountServiceClient {
	opts = clientOptions(opts)
	return &AccountServiceClient{
		register:        newClient[RegisterRequest, RegisterResponse](httpClient, baseURL, AccountServiceRegisterProcedure, opts),
		login:           newClient[LoginRequest, LoginResponse](httpClient, baseURL, AccountServiceLoginProcedure, opts),
		logout:          newClient[LogoutRequest, LogoutResponse](httpClient, baseURL, AccountServiceLogoutProcedure, opts),
		getCurrentUser:  newClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL, AccountServiceGetCurrentUserProcedure, opts),
		getUsage:        newClient[GetUsageRequest, GetUsageResponse](httpClient, baseURL, AccountServiceGetUsageProcedure, opts),
		getSubscription: newClient[GetSubscriptionRequest, GetSubscriptionResponse](httpClient, baseURL, AccountServiceGetSubscriptionProcedure, opts),
	}
}

func (c *AccountServiceClient) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *AccountServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AccountServiceClient) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetUsage(ctx context.Context, req *connect.Request[GetUsageRequest]) (*connect.Response[GetUsageResponse], error) {
	return c.getUsage.CallUnary(ctx, req)
}

func (c *AccountServiceClient) GetSubscription(ctx context.Context, req *connect.Request[GetSubscriptionRequest]) (*connect.Response[GetSubscriptionResponse], error) {
	return c.getSubscription.CallUnary(ctx, req)
}

// BillServiceHandler is implemented by the bill service.
type BillServiceHandler interface {
	CreateBill(context.Context, *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error)
	GetBill(context.Context, *connect.Request[GetBillRequest]) (*connect.Response[GetBillResponse], error)
	ListBills(context.Context, *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error)
	UpdateBill(context.Context, *connect.Request[UpdateBillRequest]) (*connect.Response[UpdateBillResponse], error)
	DeleteBill(context.Context, *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error)
	AddParticipant(context.Context, *connect.Request[AddParticipantRequest]) (*connect.Response[AddParticipantResponse], error)
	UpdateParticipant(context.Context, *connect.Request[UpdateParticipantRequest]) (*connect.Response[UpdateParticipantResponse], error)
	RemoveParticipant(context.Context, *connect.Request[RemoveParticipantRequest]) (*connect.Response[RemoveParticipantResponse], error)
	AddProduct(context.Context, *connect.Request[AddProductRequest]) (*connect.Response[AddProductResponse], error)
	UpdateProduct(context.Context, *connect.Request[UpdateProductRequest]) (*connect.Response[UpdateProductResponse], error)
	DeleteProduct(context.Context, *connect.Request[DeleteProductRequest]) (*connect.Response[DeleteProductResponse], error)
	SetAllocations(context.Context, *connect.Request[SetAllocationsRequest]) (*connect.Response[SetAllocationsResponse], error)
	GetBillSummary(context.Context, *connect.Request[GetBillSummaryRequest]) (*connect.Response[GetBillSummaryResponse], error)
}

// NewBillServiceHandler returns the path prefix and handler for svc.
func NewBillServiceHandler(svc BillServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, BillServiceCreateBillProcedure, svc.CreateBill, opts)
	handle(mux, BillServiceGetBillProcedure, svc.GetBill, opts)
	handle(mux, BillServiceListBillsProcedure, svc.ListBills, opts)
	handle(mux, BillServiceUpdateBillProcedure, svc.UpdateBill, opts)
	handle(mux, BillServiceDeleteBillProcedure, svc.DeleteBill, opts)
	handle(mux, BillServiceAddParticipantProcedure, svc.AddParticipant, opts)
	handle(mux, BillServiceUpdateParticipantProcedure, svc.UpdateParticipant, opts)
	handle(mux, BillServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts)
	handle(mux, BillServiceAddProductProcedure, svc.AddProduct, opts)
	handle(mux, BillServiceUpdateProductProcedure, svc.UpdateProduct, opts)
	handle(mux, BillServiceDeleteProductProcedure, svc.DeleteProduct, opts)
	handle(mux, BillServiceSetAllocationsProcedure, svc.SetAllocations, opts)
	handle(mux, BillServiceGetBillSummaryProcedure, svc.GetBillSummary, opts)
	return "/" + BillServiceName + "/", mux
}

// BillServiceClient calls BillService over the Connect protocol.
type BillServiceClient struct {
	createBill        *connect.Client[CreateBillRequest, CreateBillResponse]
	getBill           *connect.Client[GetBillRequest, GetBillResponse]
	listBills         *connect.Client[ListBillsRequest, ListBillsResponse]
	updateBill        *connect.Client[UpdateBillRequest, UpdateBillResponse]
	deleteBill        *connect.Client[DeleteBillRequest, DeleteBillResponse]
	addParticipant    *connect.Client[AddParticipantRequest, AddParticipantResponse]
	updateParticipant *connect.Client[UpdateParticipantRequest, UpdateParticipantResponse]
	removeParticipant *connect.Client[RemoveParticipantRequest, RemoveParticipantResponse]
	addProduct        *connect.Client[AddProductRequest, AddProductResponse]
	updateProduct     *connect.Client[UpdateProductRequest, UpdateProductResponse]
	deleteProduct     *connect.Client[DeleteProductRequest, DeleteProductResponse]
	setAllocations    *connect.Client[SetAllocationsRequest, SetAllocationsResponse]
	getBillSummary    *connect.Client[GetBillSummaryRequest, GetBillSummaryResponse]
}

func NewBillServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *BillServiceClient {
	opts = clientOptions(opts)
	return &BillServiceClient{
		createBill:        newClient[CreateBillRequest, CreateBillResponse](httpClient, baseURL, BillServiceCreateBillProcedure, opts),
		getBill:           newClient[GetBillRequest, GetBillResponse](httpClient, baseURL, BillServiceGetBillProcedure, opts),
		listBills:         newClient[ListBillsRequest, ListBillsResponse](httpClient, baseURL, BillServiceListBillsProcedure, opts),
		updateBill:        newClient[UpdateBillRequest, UpdateBillResponse](httpClient, baseURL, BillServiceUpdateBillProcedure, opts),
		deleteBill:        newClient[DeleteBillRequest, DeleteBillResponse](httpClient, baseURL, BillServiceDeleteBillProcedure, opts),
		addParticipant:    newClient[AddParticipantRequest, AddParticipantResponse](httpClient, baseURL, BillServiceAddParticipantProcedure, opts),
		updateParticipant: newClient[UpdateParticipantRequest, UpdateParticipantResponse](httpClient, baseURL, BillServiceUpdateParticipantProcedure, opts),
		removeParticipant: newClient[RemoveParticipantRequest, RemoveParticipantResponse](httpClient, baseURL, BillServiceRemoveParticipantProcedure, opts),
		addProduct:        newClient[AddProductRequest, AddProductResponse](httpClient, baseURL, BillServiceAddProductProcedure, opts),
		updateProduct:     newClient[UpdateProductRequest, UpdateProductResponse](httpClient, baseURL, BillServiceUpdateProductProcedure, opts),
		deleteProduct:     newClient[DeleteProductRequest, DeleteProductResponse](httpClient, baseURL, BillServiceDeleteProductProcedure, opts),
		setAllocations:    newClient[SetAllocationsRequest, SetAllocationsResponse](httpClient, baseURL, BillServiceSetAllocationsProcedure, opts),
		getBillSummary:    newClient[GetBillSummaryRequest, GetBillSummaryResponse](httpClient, baseURL, BillServiceGetBillSummaryProcedure, opts),
	}
}

func (c *BillServiceClient) CreateBill(ctx context.Context, req *connect.Request[CreateBillRequest]) (*connect.Response[CreateBillResponse], error) {
	return c.createBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[GetBillResponse], error) {
	return c.getBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) ListBills(ctx context.Context, req *connect.Request[ListBillsRequest]) (*connect.Response[ListBillsResponse], error) {
	return c.listBills.CallUnary(ctx, req)
}

func (c *BillServiceClient) UpdateBill(ctx context.Context, req *connect.Request[UpdateBillRequest]) (*connect.Response[UpdateBillResponse], error) {
	return c.updateBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) DeleteBill(ctx context.Context, req *connect.Request[DeleteBillRequest]) (*connect.Response[DeleteBillResponse], error) {
	return c.deleteBill.CallUnary(ctx, req)
}

func (c *BillServiceClient) AddParticipant(ctx context.Context, req *connect.Request[AddParticipantRequest]) (*connect.Response[AddParticipantResponse], error) {
	return c.addParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) UpdateParticipant(ctx context.Context, req *connect.Request[UpdateParticipantRequest]) (*connect.Response[UpdateParticipantResponse], error) {
	return c.updateParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[RemoveParticipantRequest]) (*connect.Response[RemoveParticipantResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *BillServiceClient) AddProduct(ctx context.Context, req *connect.Request[AddProductRequest]) (*connect.Response[AddProductResponse], error) {
	return c.addProduct.CallUnary(ctx, req)
}

func (c *BillServiceClient) UpdateProduct(ctx context.Context, req *connect.Request[UpdateProductRequest]) (*connect.Response[UpdateProductResponse], error) {
	return c.updateProduct.CallUnary(ctx, req)
}

func (c *BillServiceClient) DeleteProduct(ctx context.Context, req *connect.Request[DeleteProductRequest]) (*connect.Response[DeleteProductResponse], error) {
	return c.deleteProduct.CallUnary(ctx, req)
}

func (c *BillServiceClient) SetAllocations(ctx context.Context, req *connect.Request[SetAllocationsRequest]) (*connect.Response[SetAllocationsResponse], error) {
	return c.setAllocations.CallUnary(ctx, req)
}

func (c *BillServiceClient) GetBillSummary(ctx context.Context, req *connect.Request[GetBillSummaryRequest]) (*connect.Response[GetBillSummaryResponse], error) {
	return c.getBillSummary.CallUnary(ctx, req)
}

// TemplateServiceHandler is implemented by the template service.
type TemplateServiceHandler interface {
	CreateTemplate(context.Context, *connect.Request[CreateTemplateRequest]) (*connect.Response[CreateTemplateResponse], error)
	ListTemplates(context.Context, *connect.Request[ListTemplatesRequest]) (*connect.Response[ListTemplatesResponse], error)
	DeleteTemplate(context.Context, *connect.Request[DeleteTemplateRequest]) (*connect.Response[DeleteTemplateResponse], error)
}

// NewTemplateServiceHandler returns the path prefix and handler for svc.
func NewTemplateServiceHandler(svc TemplateServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	mux := http.NewServeMux()
	handle(mux, TemplateServiceCreateTemplateProcedure, svc.CreateTemplate, opts)
	handle(mux, TemplateServiceListTemplatesProcedure, svc.ListTemplates, opts)
	handle(mux, TemplateServiceDeleteTemplateProcedure, svc.DeleteTemplate, opts)
	return "/" + TemplateServiceName + "/", mux
}

// TemplateServiceClient calls TemplateService over the Connect protocol.
type TemplateServiceClient struct {
	createTemplate *connect.Client[CreateTemplateRequest, CreateTemplateResponse]
	listTemplates  *connect.Client[ListTemplatesRequest, ListTemplatesResponse]
	deleteTemplate *connect.Client[DeleteTemplateRequest, DeleteTemplateResponse]
}

func NewTemplateServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *TemplateServiceClient {
	opts = clientOptions(opts)
	return &TemplateServiceClient{
		createTemplate: newClient[CreateTemplateRequest, CreateTemplateResponse](httpClient, baseURL, TemplateServiceCreateTemplateProcedure, opts),
		listTemplates:  newClient[ListTemplatesRequest, ListTemplatesResponse](httpClient, baseURL, TemplateServiceListTemplatesProcedure, opts),
		deleteTemplate: newClient[DeleteTemplateRequest, DeleteTemplateResponse](httpClient, baseURL, TemplateServiceDeleteTemplateProcedure, opts),
	}
}

func (c *TemplateServiceClient) CreateTemplate(ctx context.Context, req *connect.Request[CreateTemplateRequest]) (*connect.Response[CreateTemplateResponse], error) {
	return c.createTemplate.CallUnary(ctx, req)
}

func (c *TemplateServiceClient) ListTemplates(ctx context.Context, req *connect.Request[ListTemplatesRequest]) (*connect.Response[ListTemplatesResponse], error) {
	return c.listTemplates.CallUnary(ctx, req)
}

func (c *TemplateServiceClient) DeleteTemplate(ctx context.Context, req *connect.Request[DeleteTemplateRequest]) (*connect.Response[DeleteTemplateResponse], error) {
	return c.deleteTemplate.CallUnary(ctx, req)
}
