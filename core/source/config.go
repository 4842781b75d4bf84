package source

const (
	// KindVCI fetches the listing from the VCI GraphQL API.
	KindVCI = "vci"
	// KindObject reads a JSON snapshot object from storage.
	KindObject = "object"
)

// Config selects and configures the snapshot source.
type Config struct {
	// Kind is the source implementation (vci, object).
	Kind string `mapstructure:"kind" default:"vci"`
	// Endpoint is the GraphQL endpoint of the VCI provider.
	Endpoint string `mapstructure:"endpoint" default:"https://trading.vietcap.com.vn/data-mt/graphql"`
	// TimeoutSeconds bounds one provider request.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// Object is the snapshot object name inside the storage bucket (kind=object).
	Object string `mapstructure:"object" default:"listings/listed_stock.json"`
}
