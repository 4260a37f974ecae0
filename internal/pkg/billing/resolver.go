package billing

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
)

// Retry parameters for the first lookup path. A payment event can arrive
// before the subscription insert is visible, so the subscription-id lookup
// is retried with a linearly increasing delay.
const (
	resolveMaxAttempts = 3
	resolveRetryDelay  = 200 * time.Millisecond
)

// Resolver maps provider references to local user/subscription records
// using a cascading fallback chain. It may repair a user's missing
// stripe_customer_id as a side effect.
type Resolver struct {
	repo     Repository
	provider ProviderClient
	sleep    func(time.Duration)
}

func NewResolver(repo Repository, provider ProviderClient) *Resolver {
	return &Resolver{repo: repo, provider: provider, sleep: time.Sleep}
}

// Resolve tries each lookup path only if the prior one failed:
//
//  1. Subscription by stripe_subscription_id (with bounded retry).
//  2. Subscription by stripe_customer_id, most recent first.
//  3. User by stripe_customer_id; if absent, the customer's email is
//     fetched from the provider and matched against users, backfilling
//     stripe_customer_id on a hit.
//  4. A subscription owned by the step-3 user and customer pair.
//
// A resolved user with no subscription is a valid partial result.
// ErrEntityNotFound is returned only when no path yields a user.
func (r *Resolver) Resolve(ctx context.Context, ref EventRef) (*Resolution, error) {
	// Path 1: direct subscription lookup, retried to absorb
	// read-after-write lag behind a fast-following payment event.
	if ref.SubscriptionID != "" {
		for attempt := 1; attempt <= resolveMaxAttempts; attempt++ {
			sub, err := r.repo.GetSubscriptionByStripeID(ref.SubscriptionID)
			if err == nil {
				return r.resolutionForSubscription(sub)
			}
			if !IsNotFound(err) {
				return nil, err
			}
			if attempt < resolveMaxAttempts {
				r.sleep(time.Duration(attempt) * resolveRetryDelay)
			}
		}
	}

	// Path 2: newest subscription for the customer.
	if ref.CustomerID != "" {
		sub, err := r.repo.GetLatestSubscriptionByCustomerID(ref.CustomerID)
		if err == nil {
			return r.resolutionForSubscription(sub)
		}
		if !IsNotFound(err) {
			return nil, err
		}
	}

	if ref.CustomerID == "" {
		return nil, ErrEntityNotFound
	}

	// Path 3: user by customer id, then by provider-fetched email.
	user, err := r.repo.GetUserByStripeCustomerID(ref.CustomerID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		user, err = r.resolveUserByProviderEmail(ctx, ref.CustomerID)
		if err != nil {
			return nil, err
		}
	}

	// Path 4: the user may own a subscription for this customer that the
	// direct lookups missed (stale or renamed subscription id).
	sub, err := r.repo.GetSubscriptionByUserAndCustomer(user.ID, ref.CustomerID)
	if err != nil {
		if !IsNotFound(err) {
			return nil, err
		}
		return &Resolution{User: user}, nil
	}
	return &Resolution{User: user, Subscription: sub}, nil
}

func (r *Resolver) resolutionForSubscription(sub *models.Subscription) (*Resolution, error) {
	user, err := r.repo.GetUserByID(sub.UserID)
	if err != nil {
		if IsNotFound(err) {
			// A subscription without its user is broken linkage; treat it
			// the same as an unresolvable reference.
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	return &Resolution{User: user, Subscription: sub}, nil
}

// resolveUserByProviderEmail fetches the customer's email from the
// provider, matches it against local users and backfills the missing
// stripe_customer_id linkage on a hit.
func (r *Resolver) resolveUserByProviderEmail(ctx context.Context, customerID string) (*models.User, error) {
	customer, err := r.provider.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	email := strings.TrimSpace(customer.Email)
	if email == "" {
		return nil, ErrEntityNotFound
	}

	user, err := r.repo.GetUserByEmail(email)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}

	if err := r.repo.SetUserStripeCustomerID(user.ID, customerID); err != nil {
		// The repair is best-effort; the resolved user is still usable.
		log.Printf("failed to backfill stripe_customer_id for user %d: %v", user.ID, err)
	} else {
		cid := customerID
		user.StripeCustomerID = &cid
	}
	return user, nil
}
