package algorithms

func builtins() []Definition {
	return []Definition{
		gaussianBlur(),
		medianBlur(),
		bilateral(),
		erode(),
		dilate(),
		opening(),
		closing(),
		threshold(),
		exposure(),
		grayscale(),
		invert(),
		colorOverlay(),
		blend(),
		edges(),
		otsuThreshold(),
		adaptiveThreshold(),
		niblack(),
		crop(),
		scale(),
		rowAverage(),
		columnAverage(),
	}
}
