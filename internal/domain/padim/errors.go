package padim

import "errors"

var (
	// ErrShapeMismatch — формы эмбеддингов и распределения (или активаций) не согласованы.
	ErrShapeMismatch = errors.New("padim: shape mismatch")

	// ErrChannelCount — на вход экстрактора подано изображение не с 3 каналами.
	ErrChannelCount = errors.New("padim: input must have 3 channels")

	// ErrSingularCovariance — ковариация не положительно определена даже после регуляризации.
	// Это ошибка конфигурации: нужно увеличить ridge.
	ErrSingularCovariance = errors.New("padim: covariance is singular, increase ridge")

	// ErrEmptyPopulation — в аккумулятор не добавлено ни одного образца.
	ErrEmptyPopulation = errors.New("padim: empty training population")

	// ErrInvalidRidge — ridge должен быть положительным.
	ErrInvalidRidge = errors.New("padim: ridge must be positive")

	// ErrInvalidSigma — sigma сглаживания не может быть отрицательной.
	ErrInvalidSigma = errors.New("padim: sigma must be non-negative")
)
