// Package ipc dispatches named requests to the transaction service. A
// request is a channel name plus a JSON array of positional arguments; the
// reply is the operation's result, ready to be encoded as JSON.
package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/transactiondb/internal/domain"
	"github.com/dvloznov/transactiondb/internal/service"
)

var (
	// ErrUnknownChannel is returned for a channel no handler is registered on.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrBadRequest is returned when the arguments do not decode.
	ErrBadRequest = errors.New("bad request")
)

// HandlerFunc serves one channel.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// Router maps channels to handlers.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter registers every channel against svc.
func NewRouter(svc *service.TransactionService) *Router {
	r := &Router{handlers: make(map[string]HandlerFunc)}

	r.handle(ChannelLoadDatabase, func(ctx context.Context, a Args) (any, error) {
		var path string
		if err := a.Decode(0, &path); err != nil {
			return nil, err
		}
		return svc.LoadDatabase(ctx, path), nil
	})
	r.handle(ChannelCreateDatabase, func(ctx context.Context, a Args) (any, error) {
		var path string
		if err := a.Decode(0, &path); err != nil {
			return nil, err
		}
		return svc.CreateDatabase(ctx, path), nil
	})
	r.handle(ChannelCloseDatabase, func(context.Context, Args) (any, error) {
		return svc.CloseDatabase(), nil
	})
	r.handle(ChannelIsDatabaseLoaded, func(context.Context, Args) (any, error) {
		return svc.IsLoaded(), nil
	})
	r.handle(ChannelGetDatabasePath, func(context.Context, Args) (any, error) {
		return svc.GetCurrentPath(), nil
	})

	r.handle(ChannelAddTransaction, func(ctx context.Context, a Args) (any, error) {
		var t domain.Transaction
		if err := a.Decode(0, &t); err != nil {
			return nil, err
		}
		return svc.AddTransaction(ctx, &t), nil
	})
	r.handle(ChannelAddTransactions, func(ctx context.Context, a Args) (any, error) {
		var ts []*domain.Transaction
		if err := a.Decode(0, &ts); err != nil {
			return nil, err
		}
		return svc.AddTransactions(ctx, ts), nil
	})
	r.handle(ChannelUpdateTransaction, func(ctx context.Context, a Args) (any, error) {
		var t domain.Transaction
		if err := a.Decode(0, &t); err != nil {
			return nil, err
		}
		return svc.UpdateTransaction(ctx, &t), nil
	})
	r.handle(ChannelRemoveTransaction, func(ctx context.Context, a Args) (any, error) {
		var id string
		if err := a.Decode(0, &id); err != nil {
			return nil, err
		}
		return svc.RemoveTransaction(ctx, id), nil
	})
	r.handle(ChannelGetTransactionByID, func(ctx context.Context, a Args) (any, error) {
		var id string
		if err := a.Decode(0, &id); err != nil {
			return nil, err
		}
		return svc.GetTransactionByID(ctx, id), nil
	})
	r.handle(ChannelGetAllTransactions, func(ctx context.Context, _ Args) (any, error) {
		return svc.GetAllTransactions(ctx), nil
	})
	r.handle(ChannelGetTransactionsByDate, func(ctx context.Context, a Args) (any, error) {
		start, err := a.Date(0)
		if err != nil {
			return nil, err
		}
		end, err := a.Date(1)
		if err != nil {
			return nil, err
		}
		return svc.GetTransactionsByDateRange(ctx, start, end), nil
	})
	r.handle(ChannelGetTransactionsByUser, func(ctx context.Context, a Args) (any, error) {
		var user string
		if err := a.Decode(0, &user); err != nil {
			return nil, err
		}
		return svc.GetTransactionsByUser(ctx, user), nil
	})
	r.handle(ChannelGetTransactionsByCategory, func(ctx context.Context, a Args) (any, error) {
		var name, sub string
		if err := a.Decode(0, &name); err != nil {
			return nil, err
		}
		if err := a.DecodeOptional(1, &sub); err != nil {
			return nil, err
		}
		return svc.GetTransactionsByCategory(ctx, name, sub), nil
	})
	r.handle(ChannelSearchTransactions, func(ctx context.Context, a Args) (any, error) {
		var f domain.SearchFilter
		if err := a.DecodeOptional(0, &f); err != nil {
			return nil, err
		}
		return svc.SearchTransactions(ctx, f), nil
	})
	r.handle(ChannelGetTransactionCount, func(ctx context.Context, _ Args) (any, error) {
		return svc.GetTransactionCount(ctx), nil
	})
	r.handle(ChannelGetTransactionsPaginated, func(ctx context.Context, a Args) (any, error) {
		page, limit := 1, 50
		if err := a.DecodeOptional(0, &page); err != nil {
			return nil, err
		}
		if err := a.DecodeOptional(1, &limit); err != nil {
			return nil, err
		}
		return svc.GetTransactionsPaginated(ctx, page, limit), nil
	})
	r.handle(ChannelBackupDatabase, func(ctx context.Context, a Args) (any, error) {
		var dest string
		if err := a.Decode(0, &dest); err != nil {
			return nil, err
		}
		return svc.BackupDatabase(ctx, dest), nil
	})

	return r
}

func (r *Router) handle(channel string, h HandlerFunc) {
	r.handlers[channel] = h
}

// Channels lists the registered channel names in sorted order.
func (r *Router) Channels() []string {
	out := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for channel. An empty body means no arguments.
func (r *Router) Dispatch(ctx context.Context, channel string, body []byte) (any, error) {
	h, ok := r.handlers[channel]
	if !ok {
		return nil, fmt.Errorf("Dispatch: %w: %q", ErrUnknownChannel, channel)
	}
	args, err := ParseArgs(body)
	if err != nil {
		return nil, err
	}
	return h(ctx, args)
}

// Args are the positional arguments of one request.
type Args []json.RawMessage

// ParseArgs decodes a JSON array of arguments. Empty input and null give no arguments.
func ParseArgs(body []byte) (Args, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}
	var args Args
	if err := json.Unmarshal(body, &args); err != nil {
		return nil, fmt.Errorf("ParseArgs: %w: arguments must be a JSON array: %w", ErrBadRequest, err)
	}
	return args, nil
}

func (a Args) present(i int) bool {
	return i < len(a) && !bytes.Equal(bytes.TrimSpace(a[i]), []byte("null"))
}

// Decode unmarshals the required argument at position i into v.
func (a Args) Decode(i int, v any) error {
	if !a.present(i) {
		return fmt.Errorf("argument %d: %w: missing", i, ErrBadRequest)
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fmt.Errorf("argument %d: %w: %w", i, ErrBadRequest, err)
	}
	return nil
}

// DecodeOptional is Decode that leaves v untouched when the argument is absent or null.
func (a Args) DecodeOptional(i int, v any) error {
	if !a.present(i) {
		return nil
	}
	return a.Decode(i, v)
}

// Date decodes the required argument at position i as a date in any form
// domain.ParseDate accepts.
func (a Args) Date(i int) (time.Time, error) {
	if !a.present(i) {
		return time.Time{}, fmt.Errorf("argument %d: %w: missing", i, ErrBadRequest)
	}
	dec := json.NewDecoder(bytes.NewReader(a[i]))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return time.Time{}, fmt.Errorf("argument %d: %w: %w", i, ErrBadRequest, err)
	}
	t, err := domain.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %d: %w: %w", i, ErrBadRequest, err)
	}
	return t, nil
}
