// internal/api/graphql.go
package api

import (
	"fmt"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/uracles/mini-wallet-application/internal/apperr"
	"github.com/uracles/mini-wallet-application/internal/auth"
	"github.com/uracles/mini-wallet-application/internal/db"
	"github.com/uracles/mini-wallet-application/internal/wallet"
)

type Resolver struct {
	production bool
	auth       *auth.Service
	wallets    *wallet.Service
	limiter    *RateLimiter
}

func NewResolver(production bool, authSvc *auth.Service, walletSvc *wallet.Service, limiter *RateLimiter) *Resolver {
	return &Resolver{
		production: production,
		auth:       authSvc,
		wallets:    walletSvc,
		limiter:    limiter,
	}
}

// Output shapes. The default field resolver matches on json tags, so these
// stay decoupled from the gorm models and can never leak key material.
type userOut struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	CreatedAt string `json:"createdAt"`
}

type authPayloadOut struct {
	Token string   `json:"token"`
	User  *userOut `json:"user"`
}

type walletOut struct {
	ID        int64  `json:"id"`
	Address   string `json:"address"`
	Network   string `json:"network"`
	CreatedAt string `json:"createdAt"`
}

type newWalletOut struct {
	Wallet *walletOut `json:"wallet"`
	// Mnemonic is shown exactly once, here.
	Mnemonic string `json:"mnemonic"`
}

type balanceOut struct {
	Wei   string `json:"wei"`
	Ether string `json:"ether"`
}

type transactionOut struct {
	ID          int64   `json:"id"`
	TxHash      string  `json:"txHash"`
	FromAddress string  `json:"fromAddress"`
	ToAddress   string  `json:"toAddress"`
	Amount      string  `json:"amount"`
	GasPrice    *string `json:"gasPrice"`
	GasUsed     *string `json:"gasUsed"`
	Status      string  `json:"status"`
	BlockNumber *int64  `json:"blockNumber"`
	ChainTime   *string `json:"chainTime"`
	CreatedAt   string  `json:"createdAt"`
}

type transactionPageOut struct {
	Items      []*transactionOut `json:"items"`
	TotalCount int64             `json:"totalCount"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

func toUserOut(u *db.User) *userOut {
	return &userOut{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toWalletOut(w *db.Wallet) *walletOut {
	return &walletOut{
		ID:        w.ID,
		Address:   w.Address,
		Network:   w.Network,
		CreatedAt: w.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionOut(t *db.Transaction) *transactionOut {
	out := &transactionOut{
		ID:          t.ID,
		TxHash:      t.TxHash,
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Amount:      t.Amount,
		GasPrice:    t.GasPrice,
		GasUsed:     t.GasUsed,
		Status:      t.Status,
		BlockNumber: t.BlockNumber,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
	}
	if t.ChainTime != nil {
		ct := t.ChainTime.UTC().Format(time.RFC3339)
		out.ChainTime = &ct
	}
	return out
}

func (r *Resolver) err(e error) error {
	return mapError(r.production, e)
}

func (r *Resolver) requireUser(p graphql.ResolveParams) (int64, error) {
	userID, ok := UserIDFromContext(p.Context)
	if !ok {
		return 0, apperr.New(apperr.CodeUnauthenticated, "authentication required")
	}
	return userID, nil
}

func (r *Resolver) allow(identity string, class LimitClass) error {
	_, retryAfter, ok := r.limiter.Allow(identity, class)
	if !ok {
		return apperr.RateLimited(retryAfter)
	}
	return nil
}

// NewSchema wires the full query/mutation surface.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	userType := graphql.NewObject(graphql.ObjectConfig{
		Name: "User",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"username":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	authPayloadType := graphql.NewObject(graphql.ObjectConfig{
		Name: "AuthPayload",
		Fields: graphql.Fields{
			"token": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"user":  &graphql.Field{Type: graphql.NewNonNull(userType)},
		},
	})

	walletType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Wallet",
		Fields: graphql.Fields{
			"id":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"address":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"network":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	newWalletType := graphql.NewObject(graphql.ObjectConfig{
		Name: "NewWallet",
		Fields: graphql.Fields{
			"wallet":   &graphql.Field{Type: graphql.NewNonNull(walletType)},
			"mnemonic": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	balanceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Balance",
		Fields: graphql.Fields{
			"wei":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"ether": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	transactionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Transaction",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"txHash":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"fromAddress": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"toAddress":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"amount":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"gasPrice":    &graphql.Field{Type: graphql.String},
			"gasUsed":     &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"blockNumber": &graphql.Field{Type: graphql.Int},
			"chainTime":   &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	transactionPageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TransactionPage",
		Fields: graphql.Fields{
			"items":      &graphql.Field{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(transactionType)))},
			"totalCount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"limit":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"offset":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:    graphql.NewNonNull(userType),
				Resolve: r.resolveMe,
			},
			"wallets": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(walletType))),
				Resolve: r.resolveWallets,
			},
			"wallet": &graphql.Field{
				Type: walletType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.resolveWallet,
			},
			"balance": &graphql.Field{
				Type: graphql.NewNonNull(balanceType),
				Args: graphql.FieldConfigArgument{
					"walletId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: r.resolveBalance,
			},
			"transactions": &graphql.Field{
				Type: graphql.NewNonNull(transactionPageType),
				Args: graphql.FieldConfigArgument{
					"walletId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"limit":    &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
					"offset":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: r.resolveTransactions,
			},
			"transaction": &graphql.Field{
				Type: transactionType,
				Args: graphql.FieldConfigArgument{
					"hash": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveTransaction,
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"register": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveRegister,
			},
			"login": &graphql.Field{
				Type: graphql.NewNonNull(authPayloadType),
				Args: graphql.FieldConfigArgument{
					"username": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"password": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveLogin,
			},
			"createWallet": &graphql.Field{
				Type: graphql.NewNonNull(newWalletType),
				Args: graphql.FieldConfigArgument{
					"network": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: r.resolveCreateWallet,
			},
			"sendFunds": &graphql.Field{
				Type: graphql.NewNonNull(transactionType),
				Args: graphql.FieldConfigArgument{
					"walletId":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"toAddress": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"amount":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveSendFunds,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: queryType, Mutation: mutationType})
}

func (r *Resolver) resolveRegister(p graphql.ResolveParams) (interface{}, error) {
	if err := r.allow("ip:"+peerIPFromContext(p.Context), ClassAuth); err != nil {
		return nil, r.err(err)
	}

	username, _ := p.Args["username"].(string)
	password, _ := p.Args["password"].(string)

	user, token, err := r.auth.Register(p.Context, username, password)
	if err != nil {
		return nil, r.err(err)
	}
	return &authPayloadOut{Token: token, User: toUserOut(user)}, nil
}

func (r *Resolver) resolveLogin(p graphql.ResolveParams) (interface{}, error) {
	if err := r.allow("ip:"+peerIPFromContext(p.Context), ClassAuth); err != nil {
		return nil, r.err(err)
	}

	username, _ := p.Args["username"].(string)
	password, _ := p.Args["password"].(string)

	user, token, err := r.auth.Login(p.Context, username, password)
	if err != nil {
		return nil, r.err(err)
	}
	return &authPayloadOut{Token: token, User: toUserOut(user)}, nil
}

func (r *Resolver) resolveMe(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	user, err := r.auth.Me(p.Context, userID)
	if err != nil {
		return nil, r.err(err)
	}
	return toUserOut(user), nil
}

func (r *Resolver) resolveCreateWallet(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	network, _ := p.Args["network"].(string)

	created, mnemonic, err := r.wallets.CreateWallet(p.Context, userID, network)
	if err != nil {
		return nil, r.err(err)
	}
	return &newWalletOut{Wallet: toWalletOut(created), Mnemonic: mnemonic}, nil
}

func (r *Resolver) resolveWallets(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	rows, err := r.wallets.ListWallets(p.Context, userID)
	if err != nil {
		return nil, r.err(err)
	}

	out := make([]*walletOut, 0, len(rows))
	for i := range rows {
		out = append(out, toWalletOut(&rows[i]))
	}
	return out, nil
}

func (r *Resolver) resolveWallet(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	walletID := int64(p.Args["id"].(int))
	row, err := r.wallets.GetWallet(p.Context, userID, walletID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, r.err(err)
	}
	return toWalletOut(row), nil
}

func (r *Resolver) resolveBalance(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	walletID := int64(p.Args["walletId"].(int))
	balance, err := r.wallets.GetBalance(p.Context, userID, walletID)
	if err != nil {
		return nil, r.err(err)
	}
	return &balanceOut{Wei: balance.Wei, Ether: balance.Ether}, nil
}

func (r *Resolver) resolveSendFunds(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	if err := r.allow(fmt.Sprintf("user:%d", userID), ClassTransfer); err != nil {
		return nil, r.err(err)
	}

	walletID := int64(p.Args["walletId"].(int))
	toAddress, _ := p.Args["toAddress"].(string)
	amount, _ := p.Args["amount"].(string)

	tx, err := r.wallets.SendFunds(p.Context, userID, walletID, toAddress, amount)
	if err != nil {
		return nil, r.err(err)
	}
	return toTransactionOut(tx), nil
}

func (r *Resolver) resolveTransactions(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	walletID := int64(p.Args["walletId"].(int))
	limit, _ := p.Args["limit"].(int)
	offset, _ := p.Args["offset"].(int)

	page, err := r.wallets.GetTransactionHistory(p.Context, userID, walletID, limit, offset)
	if err != nil {
		return nil, r.err(err)
	}

	items := make([]*transactionOut, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toTransactionOut(&page.Items[i]))
	}
	return &transactionPageOut{Items: items, TotalCount: page.Total, Limit: page.Limit, Offset: page.Offset}, nil
}

func (r *Resolver) resolveTransaction(p graphql.ResolveParams) (interface{}, error) {
	userID, err := r.requireUser(p)
	if err != nil {
		return nil, r.err(err)
	}

	hash, _ := p.Args["hash"].(string)
	tx, err := r.wallets.GetTransaction(p.Context, userID, hash)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, r.err(err)
	}
	return toTransactionOut(tx), nil
}
