package archive

type Interface interface {
	Save(samples []int16) (string, error)
}
