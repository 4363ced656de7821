package gmail

import (
	"context"
	"errors"
	"fmt"
)

// maxPageSize is the largest page the Gmail listing endpoint returns.
const maxPageSize = 500

// ListOptions selects which messages are listed and how many.
type ListOptions struct {
	LabelIDs   []string
	Query      string
	MaxResults int
}

// Listing is the outcome of a successful ListMessageIDs call.
type Listing struct {
	IDs []string
	// Estimate is the first page's result size estimate as reported by Gmail.
	Estimate int64
	Pages    int
}

// ListingError reports that one page of a listing failed. Identifiers from
// earlier pages are discarded with it.
type ListingError struct {
	Page int
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("list messages (page %d): %v", e.Page, e.Err)
}

func (e *ListingError) Unwrap() error { return e.Err }

// ListMessageIDs pages through the listing until the cursor runs out or
// MaxResults ids have been collected. Each page asks only for what is still
// missing. Listing is all-or-nothing: if any page fails the result is empty
// and the error is a *ListingError.
func ListMessageIDs(ctx context.Context, lister Lister, opts ListOptions) (Listing, error) {
	if opts.MaxResults < 1 {
		return Listing{}, errors.New("list messages: max results must be positive")
	}

	var out Listing
	pageToken := ""
	for len(out.IDs) < opts.MaxResults {
		if err := ctx.Err(); err != nil {
			return Listing{}, err
		}
		want := opts.MaxResults - len(out.IDs)
		if want > maxPageSize {
			want = maxPageSize
		}
		resp, err := lister.ListMessages(ctx, ListPageRequest{
			LabelIDs:   opts.LabelIDs,
			Query:      opts.Query,
			MaxResults: int64(want),
			PageToken:  pageToken,
		})
		out.Pages++
		if err != nil {
			return Listing{}, &ListingError{Page: out.Pages, Err: err}
		}
		if out.Pages == 1 {
			out.Estimate = resp.ResultSizeEstimate
		}
		for _, m := range resp.Messages {
			if len(out.IDs) == opts.MaxResults {
				break
			}
			out.IDs = append(out.IDs, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return out, nil
}
