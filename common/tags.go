package common

// STAC item properties
const (
	PropDatetime   = "datetime"
	PropCloudCover = "eo:cloud_cover"
)

// DefaultCloudCover is the cloud cover of an item that does not provide one
const DefaultCloudCover = 100.0

// VSICurlPrefix makes GDAL stream a remote file instead of downloading it
const VSICurlPrefix = "/vsicurl/"

// DefaultCRS is the CRS of the catalog search bounding boxes
const DefaultCRS = "EPSG:4326"
