package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listing-sync/core/ingest"

	"github.com/gofiber/fiber/v2"
)

const listingQuery = `{
  CompaniesListingInfo {
    ticker
    organName
    enOrganName
    icbName3
    enIcbName3
    icbName2
    enIcbName2
    icbName4
    enIcbName4
    comTypeCode
    icbCode1
    icbCode2
    icbCode3
    icbCode4
    __typename
  }
}`

// fieldColumns maps GraphQL fields to listing columns. Unlisted fields are dropped.
var fieldColumns = map[string]string{
	"ticker":      "symbol",
	"organName":   "organ_name",
	"enOrganName": "en_organ_name",
	"icbName3":    "icb_name3",
	"enIcbName3":  "en_icb_name3",
	"icbName2":    "icb_name2",
	"enIcbName2":  "en_icb_name2",
	"icbName4":    "icb_name4",
	"enIcbName4":  "en_icb_name4",
	"comTypeCode": "com_type_code",
	"icbCode1":    "icb_code1",
	"icbCode2":    "icb_code2",
	"icbCode3":    "icb_code3",
	"icbCode4":    "icb_code4",
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type listingResponse struct {
	Data *struct {
		Companies []map[string]any `json:"CompaniesListingInfo"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// VCI fetches the listed-company snapshot (symbols by industry) from the VCI
// market-data GraphQL API.
type VCI struct {
	endpoint string
	timeout  time.Duration
}

// NewVCI creates a VCI source. A non-positive timeout defaults to 30s.
func NewVCI(endpoint string, timeout time.Duration) *VCI {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &VCI{endpoint: endpoint, timeout: timeout}
}

// Fetch requests the full listing. The request is bounded by the configured
// timeout or the context deadline, whichever is sooner.
func (v *VCI) Fetch(ctx context.Context) (ingest.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := v.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	a := fiber.Post(v.endpoint)
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	a.Set(fiber.HeaderReferer, "https://trading.vietcap.com.vn/")
	a.JSON(graphQLRequest{Query: listingQuery, Variables: map[string]any{}})
	a.Timeout(timeout)

	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("vci listing request: %w", errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, fmt.Errorf("vci listing: unexpected status %d", code)
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("vci listing: malformed response: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("vci listing: %s", resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return nil, errors.New("vci listing: response has no data")
	}

	snap := make(ingest.Snapshot, 0, len(resp.Data.Companies))
	for _, company := range resp.Data.Companies {
		rec := make(ingest.Record, len(fieldColumns))
		for field, value := range company {
			if column, ok := fieldColumns[field]; ok {
				rec[column] = value
			}
		}
		snap = append(snap, rec)
	}
	return snap, nil
}
