package otps

type Repo interface {
	Upsert(request *Request) error
	Get(requestID string) (*Request, error)
	Delete(requestID string) error
}
